package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/promptcraft/server/internal/compute"
	"github.com/promptcraft/server/internal/events"
	"github.com/promptcraft/server/internal/model"
	"github.com/promptcraft/server/internal/reward"
	"github.com/promptcraft/server/internal/score"
	"github.com/promptcraft/server/internal/session"
)

// Service errors
var (
	ErrInvalidState      = errors.New("operation not allowed in current round state")
	ErrNoGeneratorOutput = errors.New("no generated content found in task output")
	ErrNoJudgeOutput     = errors.New("no evaluation result found in task output")
)

// AuditLog records round lifecycle rows asynchronously (off the hot path).
type AuditLog interface {
	LogGeneration(roundID, identity, taskID, errMsg string)
	LogEvaluation(roundID, identity, taskID string, scoreVal float64, scored, rewarded bool, errMsg string)
}

// RoundService orchestrates the full round lifecycle:
//
//	generate → surface content → evaluate → score → conditional reward
//
// A round runs its remote tasks strictly sequentially: one outstanding
// submit→poll cycle at a time, nothing pipelined.
type RoundService struct {
	compute   *compute.Client
	rounds    *session.Store
	issuer    *reward.Issuer
	bus       *events.Bus
	audit     AuditLog
	threshold float64
}

// NewRoundService creates the service. threshold is the minimum score
// (inclusive) that qualifies for a payout.
func NewRoundService(
	cc *compute.Client,
	rounds *session.Store,
	issuer *reward.Issuer,
	bus *events.Bus,
	audit AuditLog,
	threshold float64,
) *RoundService {
	return &RoundService{
		compute:   cc,
		rounds:    rounds,
		issuer:    issuer,
		bus:       bus,
		audit:     audit,
		threshold: threshold,
	}
}

// Get loads a round by ID.
func (s *RoundService) Get(ctx context.Context, roundID string) (*model.Round, error) {
	return s.rounds.Get(ctx, roundID)
}

// ─────────────────────────────────────────────
// Generation
// ─────────────────────────────────────────────

// StartRound creates a round and generates its content. On any failure the
// round is left without content (idle), never with a partial result.
func (s *RoundService) StartRound(ctx context.Context, identity string, contentType model.ContentType) (*model.Round, error) {
	round := &model.Round{
		ID:          uuid.NewString(),
		Identity:    identity,
		ContentType: contentType,
		State:       model.StateIdle,
		CreatedAt:   time.Now(),
	}
	return s.generate(ctx, round)
}

// Regenerate discards the round's content and any unscored evaluation
// state, then generates fresh content. An in-flight task for the old
// content is simply abandoned; no abort is sent to the remote service.
func (s *RoundService) Regenerate(ctx context.Context, roundID string) (*model.Round, error) {
	round, err := s.rounds.Get(ctx, roundID)
	if err != nil {
		return nil, err
	}
	round.Content = ""
	round.Score = 0
	round.Scored = false
	round.JudgeText = ""
	round.RewardTxID = ""
	return s.generate(ctx, round)
}

func (s *RoundService) generate(ctx context.Context, round *model.Round) (*model.Round, error) {
	if err := s.transition(ctx, round, model.StateGenerating, nil); err != nil {
		return nil, err
	}

	req := model.TaskRequest{
		Kind:        model.TaskKindGeneration,
		Input:       fmt.Sprintf("Generate a random %s", round.ContentType),
		ContentType: round.ContentType,
	}

	taskID, err := s.compute.Submit(ctx, req)
	if err != nil {
		return round, s.failGeneration(ctx, round, "", err)
	}
	log.Printf("[service] NEW generation task=%s round=%s type=%s", taskID, round.ID, round.ContentType)

	result, err := s.compute.Poll(ctx, taskID)
	if err != nil {
		return round, s.failGeneration(ctx, round, taskID, err)
	}

	content, ok := result.Find(model.AgentGenerator)
	if !ok {
		return round, s.failGeneration(ctx, round, taskID, ErrNoGeneratorOutput)
	}

	round.Content = content
	if err := s.transition(ctx, round, model.StateGeneratedReady, nil); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.LogGeneration(round.ID, round.Identity, taskID, "")
	}
	return round, nil
}

// failGeneration resets the round to idle, keeping no partial content.
func (s *RoundService) failGeneration(ctx context.Context, round *model.Round, taskID string, cause error) error {
	log.Printf("[service] generation failed round=%s: %v", round.ID, cause)
	round.Content = ""
	if err := s.transition(ctx, round, model.StateIdle, cause); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.LogGeneration(round.ID, round.Identity, taskID, cause.Error())
	}
	return cause
}

// ─────────────────────────────────────────────
// Evaluation & Reward
// ─────────────────────────────────────────────

// Evaluate scores the player's prompt against the round's content and, on
// a qualifying score, runs the payout path. A reward failure never
// corrupts the evaluation result: the score stands and a later qualifying
// evaluation retries the transfer.
func (s *RoundService) Evaluate(ctx context.Context, roundID, prompt string) (*model.Round, error) {
	round, err := s.rounds.Get(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !round.State.CanEvaluate() || round.Content == "" {
		return round, fmt.Errorf("%w: %s", ErrInvalidState, round.State)
	}

	if err := s.transition(ctx, round, model.StateEvaluating, nil); err != nil {
		return nil, err
	}

	req := model.TaskRequest{
		Kind:        model.TaskKindEvaluation,
		Input:       fmt.Sprintf("Evaluate how close this prompt is to the provided text: %s", prompt),
		ContentType: round.ContentType,
		Reference:   round.Content,
	}

	taskID, err := s.compute.Submit(ctx, req)
	if err != nil {
		return round, s.failEvaluation(ctx, round, "", err)
	}
	log.Printf("[service] NEW evaluation task=%s round=%s", taskID, round.ID)

	result, err := s.compute.Poll(ctx, taskID)
	if err != nil {
		return round, s.failEvaluation(ctx, round, taskID, err)
	}

	judgeText, ok := result.Find(model.AgentJudge)
	if !ok {
		return round, s.failEvaluation(ctx, round, taskID, ErrNoJudgeOutput)
	}
	round.JudgeText = judgeText

	scoreVal, err := score.Extract(judgeText)
	if err != nil {
		// Absence of the pattern is a parse failure, not a zero score:
		// the raw verdict is kept on the round, nothing is recorded.
		round.Scored = false
		return round, s.failEvaluation(ctx, round, taskID, err)
	}

	round.Score = scoreVal
	round.Scored = true
	if err := s.transition(ctx, round, model.StateScored, nil); err != nil {
		return nil, err
	}
	log.Printf("[service] round=%s scored %.1f/10", round.ID, scoreVal)

	rewarded, err := s.maybeReward(ctx, round)
	if s.audit != nil {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		s.audit.LogEvaluation(round.ID, round.Identity, taskID, scoreVal, true, rewarded, errMsg)
	}
	return round, err
}

// failEvaluation restores the round so the player can try again with the
// same content.
func (s *RoundService) failEvaluation(ctx context.Context, round *model.Round, taskID string, cause error) error {
	log.Printf("[service] evaluation failed round=%s: %v", round.ID, cause)
	if err := s.transition(ctx, round, model.StateGeneratedReady, cause); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.LogEvaluation(round.ID, round.Identity, taskID, 0, false, false, cause.Error())
	}
	return cause
}

// maybeReward walks the reward branch of the state machine. It reports
// whether a new payout went out.
func (s *RoundService) maybeReward(ctx context.Context, round *model.Round) (bool, error) {
	if round.Score < s.threshold || round.Identity == "" {
		return false, s.transition(ctx, round, model.StateScoreBelow, nil)
	}

	if err := s.transition(ctx, round, model.StateRewardEligible, nil); err != nil {
		return false, err
	}
	if err := s.transition(ctx, round, model.StateRewardPending, nil); err != nil {
		return false, err
	}

	txID, already, err := s.issuer.Award(ctx, round.Identity)
	if err != nil {
		if terr := s.transition(ctx, round, model.StateRewardFailed, err); terr != nil {
			return false, terr
		}
		return false, err
	}
	if already {
		// Paid out in an earlier round; terminal no-op.
		return false, s.transition(ctx, round, model.StateRewardSent, nil)
	}

	round.RewardTxID = txID
	return true, s.transition(ctx, round, model.StateRewardSent, nil)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// transition moves the round to the next state, persists it, and notifies
// subscribers.
func (s *RoundService) transition(ctx context.Context, round *model.Round, next model.RoundState, cause error) error {
	round.State = next
	if err := s.rounds.Save(ctx, round); err != nil {
		return fmt.Errorf("persist round %s: %w", round.ID, err)
	}

	change := &model.StateChange{
		RoundID:    round.ID,
		State:      next,
		RewardTxID: round.RewardTxID,
	}
	if round.Scored {
		change.Score = round.Score
	}
	if cause != nil {
		change.Error = cause.Error()
	}
	s.bus.Publish(round.ID, change)
	return nil
}
