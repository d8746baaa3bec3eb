package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

// Service syncs signed-in identities into the user store.
type Service struct {
	store Store
	now   func() time.Time
	log   logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used for login timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a user service.
func NewService(store Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync records a sign-in. The first sign-in of a uid creates a customer
// record and reports created; later ones only move metadata.lastLogin.
func (s *Service) Sync(ctx context.Context, id Identity) (user *User, created bool, err error) {
	uid, email := strings.TrimSpace(id.UID), strings.TrimSpace(id.Email)
	if uid == "" || email == "" {
		return nil, false, ErrInvalidIdentity
	}
	now := s.now().UTC()

	existing, err := s.store.FindByID(ctx, uid)
	switch {
	case err == nil:
		return s.touch(ctx, existing, now)
	case !errors.Is(err, ErrUserNotFound):
		return nil, false, fmt.Errorf("find user %s: %w", uid, err)
	}

	user = &User{
		UID:               uid,
		Email:             email,
		Role:              RoleCustomer,
		ShippingAddresses: []Address{},
		Metadata:          Metadata{CreatedAt: now, LastLogin: now},
	}
	if err := s.store.Create(ctx, user); err != nil {
		if !errors.Is(err, ErrUserExists) {
			return nil, false, fmt.Errorf("create user %s: %w", uid, err)
		}
		// A concurrent first sign-in won the insert.
		existing, err := s.store.FindByID(ctx, uid)
		if err != nil {
			return nil, false, fmt.Errorf("find user %s: %w", uid, err)
		}
		return s.touch(ctx, existing, now)
	}
	s.log.WithContext(ctx).Info("user created", "uid", uid)
	return user, true, nil
}

func (s *Service) touch(ctx context.Context, user *User, now time.Time) (*User, bool, error) {
	if err := s.store.TouchLastLogin(ctx, user.UID, now); err != nil {
		return nil, false, fmt.Errorf("update last login of %s: %w", user.UID, err)
	}
	user.Metadata.LastLogin = now
	if user.ShippingAddresses == nil {
		user.ShippingAddresses = []Address{}
	}
	return user, false, nil
}
