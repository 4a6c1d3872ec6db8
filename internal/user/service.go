// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/core"
)

// Resolver turns an authenticated identity into a User, reading the
// profile row and creating it when it is missing.
type Resolver struct {
	profiles   backend.ProfileStore
	adminEmail string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewResolver(
	profiles backend.ProfileStore,
	adminEmail string,
	timeout time.Duration,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		profiles:   profiles,
		adminEmail: adminEmail,
		timeout:    timeout,
		logger:     logger,
	}
}

// IsAdminEmail reports whether email is exactly the designated
// administrator address. Case and surrounding whitespace are significant.
func (r *Resolver) IsAdminEmail(email string) bool {
	return r.adminEmail != "" && email == r.adminEmail
}

// SignupRole is the role recorded for a new account.
func (r *Resolver) SignupRole(email string) Role {
	if r.IsAdminEmail(email) {
		return RoleAdmin
	}
	return RoleStudent
}

// Derive never fails: it falls back to a User built from the identity
// alone.
//
// Steps run in order: fetch the row (bounded by the profile timeout);
// create it only when the fetch reported that no row exists, then fetch
// again; otherwise fall back.
func (r *Resolver) Derive(ctx context.Context, ident backend.Identity) *User {
	u, err := r.fetch(ctx, ident)
	if err == nil {
		return u
	}

	if errors.Is(err, core.ErrNotFound) {
		u, err = r.createMissing(ctx, ident)
		if err == nil {
			return u
		}
	}

	r.logger.WarnContext(ctx, "profile unavailable, using identity",
		"user_id", ident.ID,
		"error", err,
	)

	return r.FromIdentity(ident)
}

// FromIdentity synthesises a User without touching the backend.
func (r *Resolver) FromIdentity(ident backend.Identity) *User {
	return &User{
		ID:    ident.ID,
		Name:  DisplayName(ident),
		Email: ident.Email,
		Role:  ParseRole(ident.MetadataString("role")),
	}
}

func (r *Resolver) fetch(ctx context.Context, ident backend.Identity) (*User, error) {
	row, err := core.RaceTimeout(ctx, r.timeout,
		func(ctx context.Context) (*backend.ProfileRow, error) {
			return r.profiles.GetProfile(ctx, ident.ID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return fromRow(row, ident), nil
}

func (r *Resolver) createMissing(ctx context.Context, ident backend.Identity) (*User, error) {
	role := ParseRole(ident.MetadataString("role"))
	if r.IsAdminEmail(ident.Email) {
		role = RoleAdmin
	}

	row := backend.ProfileRow{
		ID:       ident.ID,
		FullName: DisplayName(ident),
		Email:    ident.Email,
		Role:     string(role),
	}

	if err := r.profiles.UpsertProfile(ctx, row); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	r.logger.InfoContext(ctx, "profile created", "user_id", ident.ID, "role", role)

	return r.fetch(ctx, ident)
}

// SaveProfile writes u's row, replacing any existing one.
func (r *Resolver) SaveProfile(ctx context.Context, u *User) error {
	err := r.profiles.UpsertProfile(ctx, backend.ProfileRow{
		ID:       u.ID,
		FullName: u.Name,
		Email:    u.Email,
		Role:     string(u.Role),
	})
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// EnsureProfile inserts a minimal row for u when none exists. Failures are
// returned for the caller to log; an existing row is not an error.
func (r *Resolver) EnsureProfile(ctx context.Context, u *User) error {
	_, err := r.profiles.GetProfile(ctx, u.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("ensure profile: %w", err)
	}

	err = r.profiles.InsertProfile(ctx, backend.ProfileRow{
		ID:       u.ID,
		FullName: u.Name,
		Email:    u.Email,
		Role:     string(u.Role),
	})
	if err != nil && !errors.Is(err, core.ErrDuplicateKey) {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

// Profiles exposes the underlying store for read-only views.
func (r *Resolver) Profiles() backend.ProfileStore {
	return r.profiles
}
