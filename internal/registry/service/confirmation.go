package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/metrics"
	"github.com/hivecert/hivecert/internal/registry/notify"
	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/hivecert/hivecert/pkg/cryptox"
	"github.com/hivecert/hivecert/pkg/idx"
	"github.com/hivecert/hivecert/pkg/slogx"
)

// ConfirmPath is the route confirmation links point at.
const ConfirmPath = "/v1/admin/confirm"

// ConfirmationService issues, delivers and redeems email confirmation
// tokens.
type ConfirmationService struct {
	Store    store.Store
	Tenants  store.TenantConnector
	Mailer   notify.Mailer
	Metrics  *metrics.Metrics
	BaseURL  string
	SiteName string
	Now      func() time.Time
}

func (s *ConfirmationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// newToken returns the raw token for the email and the record to store.
func (s *ConfirmationService) newToken(adminID string, now time.Time) (string, domain.ConfirmationToken, error) {
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.ConfirmationToken{}, err
	}
	return raw, domain.ConfirmationToken{
		ID:        idx.New().String(),
		AdminID:   adminID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(domain.ConfirmationTokenTTL),
		CreatedAt: now,
	}, nil
}

// Link is the URL mailed to the administrator.
func (s *ConfirmationService) Link(raw string) string {
	return strings.TrimRight(s.BaseURL, "/") + ConfirmPath + "?token=" + url.QueryEscape(raw)
}

// deliver mails the confirmation link for raw to admin.
func (s *ConfirmationService) deliver(ctx context.Context, admin domain.Admin, raw string) error {
	if s.Mailer == nil {
		s.Metrics.ObserveConfirmationEmail(metrics.OutcomeSkipped)
		return notify.ErrNotConfigured
	}

	email, err := notify.BuildConfirmationEmail(notify.ConfirmationEmailData{
		SiteName:    s.SiteName,
		FirstName:   admin.FirstName,
		DisplayName: admin.DisplayName,
		Link:        s.Link(raw),
		ExpiresIn:   domain.ConfirmationTokenTTL,
	})
	if err == nil {
		err = s.Mailer.Send(ctx, admin.Email, email.Subject, email.HTMLBody)
	}
	if err != nil {
		s.Metrics.ObserveConfirmationEmail(metrics.OutcomeFailure)
		return err
	}
	s.Metrics.ObserveConfirmationEmail(metrics.OutcomeSuccess)
	return nil
}

// Confirm redeems a token, activates its administrator and marks the
// bootstrap tenant user confirmed.
func (s *ConfirmationService) Confirm(ctx context.Context, raw string) (domain.Admin, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	if raw == "" {
		return domain.Admin{}, ErrInvalidToken
	}

	tok, err := s.Store.ConfirmationTokens().GetConfirmationTokenByHash(ctx, cryptox.FingerprintToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Admin{}, ErrInvalidToken
	}
	if err != nil {
		return domain.Admin{}, classifyStoreError(err, "look up confirmation token")
	}
	switch {
	case tok.UsedAt != nil:
		return domain.Admin{}, ErrTokenUsed
	case !now.Before(tok.ExpiresAt):
		return domain.Admin{}, ErrTokenExpired
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ConfirmationTokens().MarkConfirmationTokenUsed(ctx, tok.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Redeemed concurrently.
				return ErrTokenUsed
			}
			return err
		}
		return tx.Admins().ActivateAdmin(ctx, tok.AdminID, now, nil)
	})
	if err != nil {
		if errors.Is(err, ErrTokenUsed) {
			return domain.Admin{}, err
		}
		return domain.Admin{}, classifyStoreError(err, "activate administrator")
	}

	admin, err := s.Store.Admins().GetAdminByID(ctx, tok.AdminID)
	if err != nil {
		return domain.Admin{}, classifyStoreError(err, "load administrator")
	}

	// The admin row is authoritative; a failed sync is repaired by
	// reconciliation.
	if err := syncTenantUser(ctx, s.Tenants, admin.SchemaName, admin.ID, true); err != nil {
		l.Error("failed to confirm bootstrap tenant user",
			slog.String("admin_id", admin.ID),
			slog.String("schema", admin.SchemaName),
			slog.Any("error", err),
		)
	}

	l.Info("administrator confirmed", slog.String("admin_id", admin.ID))
	return admin, nil
}

// Resend issues a fresh token for an unconfirmed administrator and mails
// it. Unknown or already active addresses are a silent no-op.
func (s *ConfirmationService) Resend(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)
	now := s.now()

	admin, err := s.Store.Admins().GetAdminByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		l.Info("confirmation resend for unknown email")
		return nil
	}
	if err != nil {
		return classifyStoreError(err, "look up administrator")
	}
	if admin.IsActive {
		l.Info("confirmation resend for active administrator", slog.String("admin_id", admin.ID))
		return nil
	}

	raw, tok, err := s.newToken(admin.ID, now)
	if err != nil {
		return fmt.Errorf("generate confirmation token: %w", err)
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ConfirmationTokens().DeleteUnusedConfirmationTokens(ctx, admin.ID); err != nil {
			return err
		}
		return tx.ConfirmationTokens().CreateConfirmationToken(ctx, tok)
	})
	if err != nil {
		return classifyStoreError(err, "replace confirmation token")
	}

	if err := s.deliver(ctx, admin, raw); err != nil {
		l.Error("failed to resend confirmation email",
			slog.String("admin_id", admin.ID),
			slog.Any("error", err),
		)
		return err
	}
	l.Info("confirmation email resent", slog.String("admin_id", admin.ID))
	return nil
}

func syncTenantUser(ctx context.Context, tenants store.TenantConnector, schema, adminID string, confirmed bool) error {
	if tenants == nil {
		return errors.New("no tenant connector")
	}
	conn, err := tenants.Open(ctx, schema)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.WithoutCancel(ctx)) }()
	return conn.Users().SetTenantUserConfirmed(ctx, adminID, confirmed)
}

// classifyStoreError wraps err, surfacing connectivity failures as
// ErrDatabaseUnavailable.
func classifyStoreError(err error, op string) error {
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, ErrDatabaseUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
