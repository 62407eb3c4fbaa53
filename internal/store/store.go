package store

import (
	"context"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/promptcraft/server/internal/ledger"
	"github.com/promptcraft/server/internal/model"
)

// Store provides SQL persistence via GORM (async audit writes).
type Store struct {
	db    *gorm.DB
	logCh chan func() // buffered channel for async writes
}

// NewStore opens the database, auto-migrates schemas, and starts the
// background write worker. TranslateError is required: the reward ledger
// depends on duplicate-key errors surfacing as gorm.ErrDuplicatedKey.
func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&ledger.RewardRecord{},
		&model.RoundLog{},
	); err != nil {
		return nil, err
	}

	s := &Store{
		db:    db,
		logCh: make(chan func(), 1024),
	}

	go s.writeWorker()

	return s, nil
}

func (s *Store) writeWorker() {
	for fn := range s.logCh {
		fn()
	}
}

// DB returns the underlying GORM database instance.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ─────────────────────────────────────────────
// Async audit helpers (implement service.AuditLog)
// ─────────────────────────────────────────────

// LogGeneration records a generation cycle.
func (s *Store) LogGeneration(roundID, identity, taskID, errMsg string) {
	s.logCh <- func() {
		now := time.Now()
		rl := model.RoundLog{
			RoundID:    roundID,
			Identity:   identity,
			Kind:       model.TaskKindGeneration,
			TaskID:     taskID,
			Error:      errMsg,
			CreatedAt:  now,
			FinishedAt: &now,
		}
		if err := s.db.Create(&rl).Error; err != nil {
			log.Printf("[store] log generation error: %v", err)
		}
	}
}

// LogEvaluation records an evaluation cycle and its reward outcome.
func (s *Store) LogEvaluation(roundID, identity, taskID string, scoreVal float64, scored, rewarded bool, errMsg string) {
	s.logCh <- func() {
		now := time.Now()
		rl := model.RoundLog{
			RoundID:    roundID,
			Identity:   identity,
			Kind:       model.TaskKindEvaluation,
			TaskID:     taskID,
			Score:      scoreVal,
			Scored:     scored,
			Rewarded:   rewarded,
			Error:      errMsg,
			CreatedAt:  now,
			FinishedAt: &now,
		}
		if err := s.db.Create(&rl).Error; err != nil {
			log.Printf("[store] log evaluation error: %v", err)
		}
	}
}

// RecentRounds returns the latest audit rows, newest first.
func (s *Store) RecentRounds(ctx context.Context, limit int) ([]model.RoundLog, error) {
	var rows []model.RoundLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
