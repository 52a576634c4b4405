package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/stridesense/store"
)

func (d *DB) UpsertAthlete(ctx context.Context, upsert *store.UpsertAthlete) (*store.Athlete, error) {
	fields := []string{"athlete_id", "first_name", "last_name", "avatar_url"}
	args := []any{upsert.AthleteID, upsert.FirstName, upsert.LastName, upsert.AvatarURL}

	stmt := `INSERT INTO athlete (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (athlete_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_ts = EXTRACT(EPOCH FROM NOW())
		RETURNING id, athlete_id, first_name, last_name, avatar_url, created_ts, updated_ts`

	athlete := &store.Athlete{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&athlete.ID,
		&athlete.AthleteID,
		&athlete.FirstName,
		&athlete.LastName,
		&athlete.AvatarURL,
		&athlete.CreatedTs,
		&athlete.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert athlete: %w", err)
	}

	return athlete, nil
}

func (d *DB) ListAthletes(ctx context.Context, find *store.FindAthlete) ([]*store.Athlete, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "athlete.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AthleteID; v != nil {
		where, args = append(where, "athlete.athlete_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, athlete_id, first_name, last_name, avatar_url, created_ts, updated_ts
		FROM athlete
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY athlete.id ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query athletes: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Athlete, 0)
	for rows.Next() {
		var athlete store.Athlete
		if err := rows.Scan(
			&athlete.ID,
			&athlete.AthleteID,
			&athlete.FirstName,
			&athlete.LastName,
			&athlete.AvatarURL,
			&athlete.CreatedTs,
			&athlete.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan athlete: %w", err)
		}
		list = append(list, &athlete)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate athletes: %w", err)
	}

	return list, nil
}
