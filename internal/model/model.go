package model

import (
	"time"
)

// ─────────────────────────────────────────────
// Remote Compute Tasks
// ─────────────────────────────────────────────

// TaskKind distinguishes the two jobs we submit to the compute agent.
type TaskKind string

const (
	TaskKindGeneration TaskKind = "GENERATION"
	TaskKindEvaluation TaskKind = "EVALUATION"
)

// ContentType is the generated media hint forwarded to the agent pipeline.
type ContentType string

const (
	ContentTypeImage ContentType = "image"
	ContentTypeText  ContentType = "text"
)

// TaskRequest describes one job for the remote compute agent.
// Reference carries the previously generated content for evaluation jobs
// and is empty for generation jobs.
type TaskRequest struct {
	Kind        TaskKind
	Input       string
	ContentType ContentType
	Reference   string
}

// AgentOutput is a single named agent result inside a completed task.
type AgentOutput struct {
	Name   string `json:"name"`
	Result string `json:"result"`
}

// TaskResult is the ordered agent output of a completed task.
type TaskResult struct {
	TaskOutput []AgentOutput `json:"task_output"`
}

// Find returns the result of the named agent, or ("", false).
func (r *TaskResult) Find(agentName string) (string, bool) {
	for _, out := range r.TaskOutput {
		if out.Name == agentName {
			return out.Result, true
		}
	}
	return "", false
}

// Agent names produced by the compute pipeline.
const (
	AgentGenerator = "Generator Agent"
	AgentJudge     = "Prompt Judge"
)

// ─────────────────────────────────────────────
// Round State Machine
// ─────────────────────────────────────────────

// RoundState is the explicit state of one play round. Every transition is
// validated against the current state, never inferred from flags.
type RoundState string

const (
	StateIdle           RoundState = "IDLE"
	StateGenerating     RoundState = "GENERATING"
	StateGeneratedReady RoundState = "GENERATED_READY"
	StateEvaluating     RoundState = "EVALUATING"
	StateScored         RoundState = "SCORED"
	StateScoreBelow     RoundState = "SCORE_BELOW_THRESHOLD"
	StateRewardEligible RoundState = "REWARD_ELIGIBLE"
	StateRewardPending  RoundState = "REWARD_PENDING"
	StateRewardSent     RoundState = "REWARD_SENT"
	StateRewardFailed   RoundState = "REWARD_FAILED"
)

// CanEvaluate reports whether a prompt submission is legal in this state.
// A scored round may be evaluated again: a failed or skipped payout is
// retried through a new qualifying evaluation, never automatically.
func (s RoundState) CanEvaluate() bool {
	switch s {
	case StateGeneratedReady, StateScored, StateScoreBelow,
		StateRewardSent, StateRewardFailed:
		return true
	}
	return false
}

// Round is one player session: generated content plus evaluation outcome.
// Rounds are ephemeral (Redis with TTL); only reward records are durable.
type Round struct {
	ID          string      `json:"id" redis:"id"`
	Identity    string      `json:"identity,omitempty" redis:"identity"`
	ContentType ContentType `json:"content_type" redis:"content_type"`
	State       RoundState  `json:"state" redis:"state"`
	Content     string      `json:"content,omitempty" redis:"content"`
	Score       float64     `json:"score" redis:"score"`
	Scored      bool        `json:"scored" redis:"scored"`
	JudgeText   string      `json:"judge_text,omitempty" redis:"judge_text"`
	RewardTxID  string      `json:"reward_tx_id,omitempty" redis:"reward_tx_id"`
	CreatedAt   time.Time   `json:"created_at" redis:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" redis:"updated_at"`
}

// RoundKey builds the round state key: "round:{ID}"
func RoundKey(roundID string) string {
	return "round:" + roundID
}

// ─────────────────────────────────────────────
// WebSocket Protocol Messages
// ─────────────────────────────────────────────

type MsgType string

const (
	// Server → Browser
	MsgTypeStateChanged MsgType = "STATE_CHANGED"
)

// Envelope is the top-level WebSocket frame.
type Envelope struct {
	Type    MsgType     `json:"type"`
	Payload interface{} `json:"payload"`
}

// StateChange is pushed to round subscribers on every transition.
type StateChange struct {
	RoundID    string     `json:"round_id"`
	State      RoundState `json:"state"`
	Score      float64    `json:"score,omitempty"`
	RewardTxID string     `json:"reward_tx_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ─────────────────────────────────────────────
// SQL Persistence Models (async write)
// ─────────────────────────────────────────────

// RoundLog records one generation or evaluation cycle for auditing.
type RoundLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	RoundID    string     `gorm:"index" json:"round_id"`
	Identity   string     `gorm:"index" json:"identity"`
	Kind       TaskKind   `json:"kind"`
	TaskID     string     `json:"task_id"`
	Score      float64    `json:"score"`
	Scored     bool       `json:"scored"`
	Rewarded   bool       `json:"rewarded"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ─────────────────────────────────────────────
// HTTP Request / Response
// ─────────────────────────────────────────────

// StartRoundRequest begins (or restarts) a round with fresh content.
type StartRoundRequest struct {
	ContentType ContentType `json:"content_type" binding:"required,oneof=image text"`
	Identity    string      `json:"identity"`
}

// EvaluateRequest submits the player's guessed prompt for scoring.
type EvaluateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// RoundResponse is the outbound view of a round.
type RoundResponse struct {
	RoundID     string      `json:"round_id"`
	State       RoundState  `json:"state"`
	ContentType ContentType `json:"content_type"`
	Content     string      `json:"content,omitempty"`
	Score       *float64    `json:"score,omitempty"`
	JudgeText   string      `json:"judge_text,omitempty"`
	RewardTxID  string      `json:"reward_tx_id,omitempty"`
}

// RewardStatusResponse reports whether an identity has been paid out.
type RewardStatusResponse struct {
	Identity      string     `json:"identity"`
	Rewarded      bool       `json:"rewarded"`
	TransactionID string     `json:"transaction_id,omitempty"`
	RewardedAt    *time.Time `json:"rewarded_at,omitempty"`
}
