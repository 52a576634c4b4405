package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/stridesense/store"
)

func (d *DB) UpsertActivitySegments(ctx context.Context, upsert *store.UpsertActivitySegments) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, segment := range upsert.Segments {
		if err := upsertSegmentTx(ctx, tx, segment); err != nil {
			return err
		}
	}
	for _, effort := range upsert.Efforts {
		if err := upsertSegmentEffortTx(ctx, tx, effort); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activity segments: %w", err)
	}
	return nil
}

func upsertSegmentTx(ctx context.Context, tx *sql.Tx, segment *store.Segment) error {
	stmt := `INSERT INTO segment (id, name, distance, average_grade, city)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			distance = EXCLUDED.distance,
			average_grade = EXCLUDED.average_grade,
			city = EXCLUDED.city,
			updated_ts = strftime('%s', 'now')`

	if _, err := tx.ExecContext(ctx, stmt,
		segment.ID, segment.Name, segment.Distance, segment.AverageGrade, segment.City,
	); err != nil {
		return fmt.Errorf("failed to upsert segment %d: %w", segment.ID, err)
	}
	return nil
}

func upsertSegmentEffortTx(ctx context.Context, tx *sql.Tx, effort *store.SegmentEffort) error {
	stmt := `INSERT INTO segment_effort (id, segment_id, activity_id, elapsed_time, moving_time, start_ts, kom_rank, pr_rank)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (id) DO UPDATE SET
			segment_id = EXCLUDED.segment_id,
			activity_id = EXCLUDED.activity_id,
			elapsed_time = EXCLUDED.elapsed_time,
			moving_time = EXCLUDED.moving_time,
			start_ts = EXCLUDED.start_ts,
			kom_rank = EXCLUDED.kom_rank,
			pr_rank = EXCLUDED.pr_rank`

	if _, err := tx.ExecContext(ctx, stmt,
		effort.ID, effort.SegmentID, effort.ActivityID, effort.ElapsedTime,
		effort.MovingTime, effort.StartTs, effort.KOMRank, effort.PRRank,
	); err != nil {
		return fmt.Errorf("failed to upsert segment effort %d: %w", effort.ID, err)
	}
	return nil
}

func (d *DB) ListSegments(ctx context.Context, find *store.FindSegment) ([]*store.Segment, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "segment.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.NameLike; v != nil {
		where, args = append(where, "LOWER(segment.name) LIKE "+placeholder(len(args)+1)), append(args, "%"+strings.ToLower(*v)+"%")
	}

	query := `
		SELECT
			id, name, distance, average_grade, city, updated_ts
		FROM segment
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY segment.name ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Segment, 0)
	for rows.Next() {
		var segment store.Segment
		if err := rows.Scan(
			&segment.ID,
			&segment.Name,
			&segment.Distance,
			&segment.AverageGrade,
			&segment.City,
			&segment.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		list = append(list, &segment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segments: %w", err)
	}

	return list, nil
}

func (d *DB) ListSegmentEfforts(ctx context.Context, find *store.FindSegmentEffort) ([]*store.SegmentEffort, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.SegmentID; v != nil {
		where, args = append(where, "segment_effort.segment_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ActivityID; v != nil {
		where, args = append(where, "segment_effort.activity_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	orderBy := "ORDER BY segment_effort.start_ts DESC"
	if find.OrderByElapsedAsc {
		orderBy = "ORDER BY segment_effort.elapsed_time ASC"
	}

	query := `
		SELECT
			id, segment_id, activity_id, elapsed_time, moving_time, start_ts, kom_rank, pr_rank
		FROM segment_effort
		WHERE ` + strings.Join(where, " AND ") + ` ` + orderBy

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query segment efforts: %w", err)
	}
	defer rows.Close()

	list := make([]*store.SegmentEffort, 0)
	for rows.Next() {
		var effort store.SegmentEffort
		var komRank, prRank sql.NullInt32
		if err := rows.Scan(
			&effort.ID,
			&effort.SegmentID,
			&effort.ActivityID,
			&effort.ElapsedTime,
			&effort.MovingTime,
			&effort.StartTs,
			&komRank,
			&prRank,
		); err != nil {
			return nil, fmt.Errorf("failed to scan segment effort: %w", err)
		}
		if komRank.Valid {
			effort.KOMRank = &komRank.Int32
		}
		if prRank.Valid {
			effort.PRRank = &prRank.Int32
		}
		list = append(list, &effort)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segment efforts: %w", err)
	}

	return list, nil
}
