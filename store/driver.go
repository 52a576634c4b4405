package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, name, value string) error
	GetSystemSetting(ctx context.Context, name string) (string, error)

	// Athlete model related methods.
	UpsertAthlete(ctx context.Context, upsert *UpsertAthlete) (*Athlete, error)
	ListAthletes(ctx context.Context, find *FindAthlete) ([]*Athlete, error)

	// Credential model related methods.
	UpsertCredential(ctx context.Context, upsert *UpsertCredential) (*Credential, error)
	GetCredential(ctx context.Context, find *FindCredential) (*Credential, error)
	DeleteCredential(ctx context.Context, find *FindCredential) error

	// Segment model related methods.
	UpsertActivitySegments(ctx context.Context, upsert *UpsertActivitySegments) error
	ListSegments(ctx context.Context, find *FindSegment) ([]*Segment, error)
	ListSegmentEfforts(ctx context.Context, find *FindSegmentEffort) ([]*SegmentEffort, error)

	// AnswerCache model related methods.
	UpsertAnswerCache(ctx context.Context, upsert *AnswerCache) (*AnswerCache, error)
	GetAnswerCache(ctx context.Context, promptHash string) (*AnswerCache, error)
	DeleteAnswerCache(ctx context.Context, promptHash string) error
}
