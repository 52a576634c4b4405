package store

import (
	"context"
)

// AnswerCache is a stored LLM response keyed by the hash of its full prompt.
type AnswerCache struct {
	PromptHash string
	Response   string
	CreatedTs  int64
}

// UpsertAnswerCache stores a generated answer under its prompt hash.
func (s *Store) UpsertAnswerCache(ctx context.Context, upsert *AnswerCache) (*AnswerCache, error) {
	return s.driver.UpsertAnswerCache(ctx, upsert)
}

// GetAnswerCache looks up a cached answer, nil on miss.
func (s *Store) GetAnswerCache(ctx context.Context, promptHash string) (*AnswerCache, error) {
	return s.driver.GetAnswerCache(ctx, promptHash)
}

// DeleteAnswerCache drops a cached answer.
func (s *Store) DeleteAnswerCache(ctx context.Context, promptHash string) error {
	return s.driver.DeleteAnswerCache(ctx, promptHash)
}
