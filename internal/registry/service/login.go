package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/hivecert/hivecert/pkg/cryptox"
	"github.com/hivecert/hivecert/pkg/idx"
	"github.com/hivecert/hivecert/pkg/jwtx"
	"github.com/hivecert/hivecert/pkg/slogx"
)

// LoginService authenticates administrators and mints console sessions.
type LoginService struct {
	Store    store.Store
	Signer   jwtx.Signer
	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      func() time.Time
}

// Session is a signed session token and the administrator it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Admin     domain.Admin
}

// Login checks the credential and requires a confirmed administrator.
func (s *LoginService) Login(ctx context.Context, email, password string) (Session, error) {
	l := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	admin, err := s.Store.Admins().GetAdminByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, classifyStoreError(err, "look up administrator")
	}

	if err := cryptox.VerifyPassword(password, admin.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatchedPassword) {
			l.Error("stored password hash unusable", slog.String("admin_id", admin.ID), slog.Any("error", err))
		}
		return Session{}, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return Session{}, ErrAdminInactive
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	claims := jwtx.NewSessionClaims(jwtx.SessionParams{
		Subject:  admin.ID,
		Schema:   admin.SchemaName,
		Role:     admin.Role.String(),
		Email:    admin.Email,
		Issuer:   s.Issuer,
		Audience: s.Audience,
		TTL:      s.TTL,
	}, now)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}

	l.Info("administrator logged in", slog.String("admin_id", admin.ID))
	return Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, Admin: admin}, nil
}

// Admin loads the administrator behind a session. Subjects that are not
// registry ids are reported as not found.
func (s *LoginService) Admin(ctx context.Context, id string) (domain.Admin, error) {
	adminID, err := idx.Parse(id)
	if err != nil {
		return domain.Admin{}, store.ErrNotFound
	}
	admin, err := s.Store.Admins().GetAdminByID(ctx, adminID.String())
	if err != nil {
		return domain.Admin{}, classifyStoreError(err, "load administrator")
	}
	return admin, nil
}
