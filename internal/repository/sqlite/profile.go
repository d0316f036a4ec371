package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

var _ repository.ProfileRepository = (*ProfileDB)(nil)

// ProfileDB stores profiles and the directed subscription edges between them.
type ProfileDB struct {
	conn *sql.DB
}

// GetByUserID returns the profile owned by userID.
// Returns apperror.ErrNotFound if the user has no profile row.
func (p *ProfileDB) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := p.conn.QueryRowContext(ctx,
		`SELECT p.id, p.user_id, u.username, p.created_at
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = ?`,
		userID,
	).Scan(&profile.ID, &profile.UserID, &profile.Username, &profile.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("sqlite: getting profile for user %s: %w", userID, err)
	}
	return &profile, nil
}

// IsSubscribed reports whether subscriberID has targetID in its subscription set.
func (p *ProfileDB) IsSubscribed(ctx context.Context, subscriberID, targetID string) (bool, error) {
	var exists bool
	err := p.conn.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM subscriptions WHERE subscriber_id = ? AND target_id = ?
		 )`,
		subscriberID, targetID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking subscription %s -> %s: %w", subscriberID, targetID, err)
	}
	return exists, nil
}

// Subscribe adds targetID to subscriberID's set. Adding an existing edge is a no-op.
func (p *ProfileDB) Subscribe(ctx context.Context, subscriberID, targetID string) error {
	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO subscriptions (subscriber_id, target_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (subscriber_id, target_id) DO NOTHING`,
		subscriberID, targetID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: subscribing %s -> %s: %w", subscriberID, targetID, err)
	}
	return nil
}

// Unsubscribe removes the edge. Removing a missing edge is a no-op.
func (p *ProfileDB) Unsubscribe(ctx context.Context, subscriberID, targetID string) error {
	_, err := p.conn.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = ? AND target_id = ?`,
		subscriberID, targetID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unsubscribing %s -> %s: %w", subscriberID, targetID, err)
	}
	return nil
}

// ListSubscriptions returns the profiles profileID subscribes to, by username.
func (p *ProfileDB) ListSubscriptions(ctx context.Context, profileID string) ([]model.Profile, error) {
	rows, err := p.conn.QueryContext(ctx,
		`SELECT p.id, p.user_id, u.username, p.created_at
		 FROM subscriptions s
		 JOIN profiles p ON p.id = s.target_id
		 JOIN users u ON u.id = p.user_id
		 WHERE s.subscriber_id = ?
		 ORDER BY u.username`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing subscriptions of %s: %w", profileID, err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		var pr model.Profile
		if err := rows.Scan(&pr.ID, &pr.UserID, &pr.Username, &pr.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile row: %w", err)
		}
		profiles = append(profiles, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating subscriptions: %w", err)
	}
	return profiles, nil
}
