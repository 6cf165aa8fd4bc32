package lighthouse

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DecisionLog is one append-only row per validation attempt, including
// failed downloads (those carry a degraded record: no score, no hash).
type DecisionLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	AttemptID  string `gorm:"size:36;index" json:"attempt_id"`
	Respondent string `json:"respondent"`
	IP         string `json:"ip"`
	Country    string `json:"country"`
	Region     string `json:"region"`

	Valid         bool    `json:"valid"`
	ClipScore     float64 `json:"clip_score"`
	MatchedPrompt string  `json:"matched_prompt"`
	PHash         string  `json:"phash"`
	Reasons       string  `json:"reasons"` // comma-joined

	Artist    string `json:"artist,omitempty"`
	Copyright string `json:"copyright,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TableName keeps the original table name.
func (DecisionLog) TableName() string { return "logs" }

// StoreError reports a persistence failure. The orchestrator surfaces it
// to the operator but never lets it invalidate an already-computed verdict.
type StoreError struct {
	Reason string // "io" or "constraint"
	Err    error
}

func (e *StoreError) Error() string { return fmt.Sprintf("decision store: %s: %v", e.Reason, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Store is the durable decision log backed by sqlite. Appends are
// serialized through a single connection so concurrent pipeline runs can
// not corrupt the schema or lose rows.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (creating if absent) the sqlite database at path and
// migrates the logs table.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open decision store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open decision store: %w", err)
	}
	// One writer; sqlite serializes anyway, this just avoids busy errors.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&DecisionLog{}); err != nil {
		return nil, fmt.Errorf("migrate decision store: %w", err)
	}

	return &Store{db: db}, nil
}

// Append inserts one decision row. The returned error is always a
// *StoreError.
func (s *Store) Append(ctx context.Context, rec *DecisionLog) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return &StoreError{Reason: "io", Err: err}
	}
	return nil
}

// Recent returns up to limit rows, newest first. Used by the dashboard.
func (s *Store) Recent(ctx context.Context, limit int) ([]DecisionLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []DecisionLog
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, &StoreError{Reason: "io", Err: err}
	}
	return rows, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
