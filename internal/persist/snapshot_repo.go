package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepo stores scene snapshots in Postgres, one row per save, with
// the payload checksum in its own column.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Save(ctx context.Context, s Snapshot) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO scene_snapshots (scene, frame, format, checksum, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.Scene, int64(s.Frame), int16(s.Format), Checksum(s.Payload), s.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot of scene after verifying its checksum.
func (r *SnapshotRepo) Latest(ctx context.Context, scene string) (Snapshot, error) {
	var (
		frame    int64
		format   int16
		checksum []byte
		payload  []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT frame, format, checksum, payload
		 FROM scene_snapshots
		 WHERE scene = $1
		 ORDER BY id DESC
		 LIMIT 1`, scene,
	).Scan(&frame, &format, &checksum, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("scene %s: %w", scene, ErrNoSnapshot)
		}
		return Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	if !bytes.Equal(checksum, Checksum(payload)) {
		return Snapshot{}, fmt.Errorf("scene %s: %w", scene, ErrChecksum)
	}
	return Snapshot{Scene: scene, Frame: uint64(frame), Format: Format(format), Payload: payload}, nil
}

func (r *SnapshotRepo) Scenes(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT DISTINCT scene FROM scene_snapshots ORDER BY scene`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Prune deletes all but the newest keep snapshots of scene.
func (r *SnapshotRepo) Prune(ctx context.Context, scene string, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM scene_snapshots
		 WHERE scene = $1 AND id NOT IN (
		     SELECT id FROM scene_snapshots WHERE scene = $1 ORDER BY id DESC LIMIT $2
		 )`, scene, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
