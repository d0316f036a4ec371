package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

const MsgSelfSubscribe = "You cannot subscribe to yourself."

// SubscriptionService manages the directed subscription edges between profiles.
type SubscriptionService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

func NewSubscriptionService(users repository.UserRepository, profiles repository.ProfileRepository, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{users: users, profiles: profiles, logger: logger}
}

// Toggle flips viewerID's subscription to the user named targetUsername and
// reports the new state (true = now subscribed).
//
// ERRORS (nothing is written in any of these cases):
//   - unknown target username              → apperror.ErrNotFound
//   - viewer or target has no profile      → apperror.ErrMissingProfile
//   - viewer is the target                 → apperror.ErrForbidden
func (s *SubscriptionService) Toggle(ctx context.Context, viewerID, targetUsername string) (bool, error) {
	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return false, err
	}

	viewerProfile, err := s.profileOf(ctx, viewerID)
	if err != nil {
		return false, err
	}
	targetProfile, err := s.profileOf(ctx, target.ID)
	if err != nil {
		return false, err
	}

	if viewerProfile.ID == targetProfile.ID {
		return false, apperror.Forbidden(MsgSelfSubscribe)
	}

	subscribed, err := s.profiles.IsSubscribed(ctx, viewerProfile.ID, targetProfile.ID)
	if err != nil {
		return false, fmt.Errorf("service/subscription: %w", err)
	}

	if subscribed {
		err = s.profiles.Unsubscribe(ctx, viewerProfile.ID, targetProfile.ID)
	} else {
		err = s.profiles.Subscribe(ctx, viewerProfile.ID, targetProfile.ID)
	}
	if err != nil {
		s.logger.Error("failed to toggle subscription",
			slog.String("viewerID", viewerID),
			slog.String("target", targetUsername),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("service/subscription: toggling %s: %w", targetUsername, err)
	}

	s.logger.Info("subscription toggled",
		slog.String("viewerID", viewerID),
		slog.String("target", targetUsername),
		slog.Bool("subscribed", !subscribed),
	)
	return !subscribed, nil
}

// IsSubscribed reports whether viewerID subscribes to targetUserID.
// A missing profile on either side simply means "not subscribed".
func (s *SubscriptionService) IsSubscribed(ctx context.Context, viewerID, targetUserID string) (bool, error) {
	viewerProfile, err := s.profileOf(ctx, viewerID)
	if errors.Is(err, apperror.ErrMissingProfile) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	targetProfile, err := s.profileOf(ctx, targetUserID)
	if errors.Is(err, apperror.ErrMissingProfile) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.profiles.IsSubscribed(ctx, viewerProfile.ID, targetProfile.ID)
}

// ListSubscriptions returns the profiles viewerID subscribes to, by username.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context, viewerID string) ([]model.Profile, error) {
	profile, err := s.profileOf(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	subs, err := s.profiles.ListSubscriptions(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("service/subscription: listing for %s: %w", viewerID, err)
	}
	return subs, nil
}

// profileOf maps the repository's "not found" to ErrMissingProfile: the user
// exists, only its profile row is gone.
func (s *SubscriptionService) profileOf(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.MissingProfile(userID)
		}
		return nil, fmt.Errorf("service/subscription: loading profile of %s: %w", userID, err)
	}
	return p, nil
}
