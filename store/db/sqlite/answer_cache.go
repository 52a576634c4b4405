package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrygo/stridesense/store"
)

func (d *DB) UpsertAnswerCache(ctx context.Context, upsert *store.AnswerCache) (*store.AnswerCache, error) {
	stmt := `INSERT INTO answer_cache (prompt_hash, response)
		VALUES (` + placeholders(2) + `)
		ON CONFLICT (prompt_hash) DO UPDATE SET response = EXCLUDED.response
		RETURNING prompt_hash, response, created_ts`

	cache := &store.AnswerCache{}
	if err := d.db.QueryRowContext(ctx, stmt, upsert.PromptHash, upsert.Response).Scan(
		&cache.PromptHash,
		&cache.Response,
		&cache.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert answer cache: %w", err)
	}

	return cache, nil
}

func (d *DB) GetAnswerCache(ctx context.Context, promptHash string) (*store.AnswerCache, error) {
	query := `SELECT prompt_hash, response, created_ts FROM answer_cache WHERE prompt_hash = ` + placeholder(1)

	cache := &store.AnswerCache{}
	err := d.db.QueryRowContext(ctx, query, promptHash).Scan(
		&cache.PromptHash,
		&cache.Response,
		&cache.CreatedTs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get answer cache: %w", err)
	}

	return cache, nil
}

func (d *DB) DeleteAnswerCache(ctx context.Context, promptHash string) error {
	stmt := `DELETE FROM answer_cache WHERE prompt_hash = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, promptHash); err != nil {
		return fmt.Errorf("failed to delete answer cache: %w", err)
	}
	return nil
}
