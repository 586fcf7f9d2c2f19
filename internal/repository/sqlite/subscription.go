package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.SubscriptionRepository = (*DB)(nil)

func (db *DB) AddSubscription(ctx context.Context, userID, authorID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, author_id, created_at) VALUES (?, ?, ?)`,
		userID, authorID, time.Now(),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.AlreadyExists("already subscribed to this author")
		case isForeignKeyViolation(err):
			return apperror.NotFound("user", authorID)
		}
		return fmt.Errorf("sqlite: subscribing %s to %s: %w", userID, authorID, err)
	}
	return nil
}

func (db *DB) RemoveSubscription(ctx context.Context, userID, authorID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = ? AND author_id = ?`,
		userID, authorID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unsubscribing %s from %s: %w", userID, authorID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: "not subscribed to this author",
		}
	}
	return nil
}

func (db *DB) IsSubscribed(ctx context.Context, userID, authorID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = ? AND author_id = ?)`,
		userID, authorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking subscription: %w", err)
	}
	return exists, nil
}

// ListSubscribedAuthors returns a page of the authors userID follows,
// most recently followed first.
func (db *DB) ListSubscribedAuthors(ctx context.Context, userID string, opts repository.ListOptions) ([]model.User, int, error) {
	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = ?`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting subscriptions: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.email, u.username, u.first_name, u.last_name, u.password_hash,
		        u.avatar, u.github_id, u.created_at, u.updated_at
		 FROM subscriptions s JOIN users u ON u.id = s.author_id
		 WHERE s.user_id = ?
		 ORDER BY s.created_at DESC, u.username
		 LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing subscriptions: %w", err)
	}
	defer rows.Close()

	authors := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning author row: %w", err)
		}
		authors = append(authors, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating authors: %w", err)
	}
	return authors, total, nil
}
