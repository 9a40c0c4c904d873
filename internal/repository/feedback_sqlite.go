package repository

import (
	"context"
	"fmt"
	"time"

	"orderhub-bot/internal/model"
)

// InsertFeedback records a free-text feedback message.
func (s *SQLiteStore) InsertFeedback(ctx context.Context, fb *model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fb.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (account_id, message, created_at) VALUES (?, ?, ?)`,
		fb.AccountID, fb.Message, fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	fb.ID, err = res.LastInsertId()
	return err
}

// ListFeedback returns feedback entries newest-first with pagination.
func (s *SQLiteStore) ListFeedback(ctx context.Context, limit, offset int) ([]model.Feedback, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, message, created_at FROM feedback
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	entries := []model.Feedback{}
	for rows.Next() {
		var fb model.Feedback
		if err := rows.Scan(&fb.ID, &fb.AccountID, &fb.Message, &fb.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, fb)
	}
	return entries, total, rows.Err()
}
