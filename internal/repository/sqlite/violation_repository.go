package sqlite

import (
	"context"
	"fmt"
	"time"

	"ppe-monitor-go/internal/models"
)

// ViolationRepository journals every recorded violation.
type ViolationRepository struct {
	db *DB
}

func NewViolationRepository(db *DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// Insert stores one record for the session and returns its row id.
func (r *ViolationRepository) Insert(ctx context.Context, sessionID string, rec models.ViolationRecord) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO violations (session_id, label, confidence, x1, y1, x2, y2, snapshot_path, persisted, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, rec.Label, rec.Score,
		rec.BBox.X1, rec.BBox.Y1, rec.BBox.X2, rec.BBox.Y2,
		rec.SnapshotPath, rec.Persisted, rec.Timestamp.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert violation: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first. An empty label matches all classes.
func (r *ViolationRepository) Recent(ctx context.Context, label string, limit int) ([]models.ViolationEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, label, confidence, x1, y1, x2, y2, snapshot_path, persisted, captured_at
		FROM violations`
	args := []interface{}{}
	if label != "" {
		query += " WHERE label = ?"
		args = append(args, label)
	}
	query += " ORDER BY captured_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var entries []models.ViolationEntry
	for rows.Next() {
		var (
			e          models.ViolationEntry
			capturedAt time.Time
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Label, &e.Confidence,
			&e.BBox.X1, &e.BBox.Y1, &e.BBox.X2, &e.BBox.Y2,
			&e.SnapshotPath, &e.Persisted, &capturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		e.CapturedAt = capturedAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByLabel returns the number of journaled violations per class.
func (r *ViolationRepository) CountByLabel(ctx context.Context) (map[string]int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows, err := r.db.conn.QueryContext(ctx, `SELECT label, COUNT(*) FROM violations GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to count violations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
