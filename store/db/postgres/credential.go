package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrygo/stridesense/store"
)

func (d *DB) UpsertCredential(ctx context.Context, upsert *store.UpsertCredential) (*store.Credential, error) {
	stmt := `INSERT INTO credential (user_id, access_token, refresh_token, expires_at)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_ts = EXTRACT(EPOCH FROM NOW())
		RETURNING user_id, access_token, refresh_token, expires_at, updated_ts`

	credential := &store.Credential{}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID, upsert.AccessToken, upsert.RefreshToken, upsert.ExpiresAt,
	).Scan(
		&credential.UserID,
		&credential.AccessToken,
		&credential.RefreshToken,
		&credential.ExpiresAt,
		&credential.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert credential: %w", err)
	}

	return credential, nil
}

func (d *DB) GetCredential(ctx context.Context, find *store.FindCredential) (*store.Credential, error) {
	if find.UserID == nil {
		return nil, fmt.Errorf("user id is required")
	}

	query := `SELECT user_id, access_token, refresh_token, expires_at, updated_ts
		FROM credential WHERE user_id = ` + placeholder(1)

	credential := &store.Credential{}
	err := d.db.QueryRowContext(ctx, query, *find.UserID).Scan(
		&credential.UserID,
		&credential.AccessToken,
		&credential.RefreshToken,
		&credential.ExpiresAt,
		&credential.UpdatedTs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return credential, nil
}

func (d *DB) DeleteCredential(ctx context.Context, find *store.FindCredential) error {
	if find.UserID == nil {
		return fmt.Errorf("user id is required")
	}

	stmt := `DELETE FROM credential WHERE user_id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, *find.UserID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
