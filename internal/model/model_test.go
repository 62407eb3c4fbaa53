package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanEvaluate(t *testing.T) {
	allowed := []RoundState{
		StateGeneratedReady, StateScored, StateScoreBelow,
		StateRewardSent, StateRewardFailed,
	}
	for _, s := range allowed {
		assert.True(t, s.CanEvaluate(), "state %s", s)
	}

	denied := []RoundState{
		StateIdle, StateGenerating, StateEvaluating,
		StateRewardEligible, StateRewardPending,
	}
	for _, s := range denied {
		assert.False(t, s.CanEvaluate(), "state %s", s)
	}
}

func TestTaskResultFind(t *testing.T) {
	result := &TaskResult{TaskOutput: []AgentOutput{
		{Name: AgentGenerator, Result: "a foggy pier"},
		{Name: AgentJudge, Result: "accuracy score is 90%"},
	}}

	got, ok := result.Find(AgentJudge)
	assert.True(t, ok)
	assert.Equal(t, "accuracy score is 90%", got)

	_, ok = result.Find("Critic Agent")
	assert.False(t, ok)
}

func TestRoundKey(t *testing.T) {
	assert.Equal(t, "round:abc", RoundKey("abc"))
}
