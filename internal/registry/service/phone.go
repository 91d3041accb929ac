package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/notify"
	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/hivecert/hivecert/pkg/idx"
	"github.com/hivecert/hivecert/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Codes are TOTP values over a per-record seed, computed at the creation
// instant. The period only has to outlast the record, expiry is enforced
// by ExpiresAt.
var codeOpts = totp.ValidateOpts{
	Period:    uint(domain.VerificationCodeTTL / time.Second),
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// resendInterval is the minimum gap between two codes for one phone.
const resendInterval = 30 * time.Second

// PhoneVerificationService sends and checks one-time codes proving
// ownership of a phone number, and answers the registration gate.
type PhoneVerificationService struct {
	Store    store.Store
	SMS      notify.SMSSender
	SiteName string
	Now      func() time.Time
}

func (s *PhoneVerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// SendCode issues a fresh code for phone and texts it.
func (s *PhoneVerificationService) SendCode(ctx context.Context, phone string) (time.Time, error) {
	l := slogx.FromContext(ctx)

	phone = NormalizePhone(phone)
	if !phonePattern.MatchString(phone) {
		return time.Time{}, ErrInvalidPhone
	}
	now := s.now()

	prev, err := s.Store.VerificationCodes().GetLatestVerificationCode(ctx, phone, domain.PurposePhone)
	switch {
	case err == nil && now.Sub(prev.CreatedAt) < resendInterval:
		return time.Time{}, ErrCodeRecentlySent
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return time.Time{}, fmt.Errorf("look up verification code: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.siteName(),
		AccountName: phone,
		Period:      codeOpts.Period,
		Digits:      codeOpts.Digits,
		Algorithm:   codeOpts.Algorithm,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("generate code seed: %w", err)
	}
	code, err := totp.GenerateCodeCustom(key.Secret(), now, codeOpts)
	if err != nil {
		return time.Time{}, fmt.Errorf("generate code: %w", err)
	}

	rec := domain.VerificationCode{
		ID:         idx.New().String(),
		Identifier: phone,
		Purpose:    domain.PurposePhone,
		Secret:     key.Secret(),
		ExpiresAt:  now.Add(domain.VerificationCodeTTL),
		CreatedAt:  now,
	}
	if err := s.Store.VerificationCodes().CreateVerificationCode(ctx, rec); err != nil {
		return time.Time{}, fmt.Errorf("store verification code: %w", err)
	}

	sendErr := notify.ErrNotConfigured
	if s.SMS != nil {
		sendErr = s.SMS.SendSMS(ctx, phone, notify.PhoneCodeMessage(s.siteName(), code, domain.VerificationCodeTTL))
	}
	if sendErr != nil {
		l.Error("failed to send verification sms",
			slog.String("code_id", rec.ID),
			slog.Any("error", sendErr),
		)
		// A code that never arrived must not hold back the next request.
		if err := s.Store.VerificationCodes().DeleteVerificationCode(context.WithoutCancel(ctx), rec.ID); err != nil {
			l.Error("failed to discard undelivered code", slog.String("code_id", rec.ID), slog.Any("error", err))
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrSMSDelivery, sendErr)
	}

	l.Info("sent phone verification code", slog.String("code_id", rec.ID))
	return rec.ExpiresAt, nil
}

// VerifyCode redeems code against the newest pending record for phone.
// Wrong guesses count against the record.
func (s *PhoneVerificationService) VerifyCode(ctx context.Context, phone, code string) error {
	l := slogx.FromContext(ctx)

	phone = NormalizePhone(phone)
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	now := s.now()

	rec, err := s.Store.VerificationCodes().GetLatestVerificationCode(ctx, phone, domain.PurposePhone)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCodeNotFound
	}
	if err != nil {
		return fmt.Errorf("look up verification code: %w", err)
	}

	switch {
	case rec.Attempts >= domain.MaxVerificationAttempts:
		return ErrTooManyAttempts
	case !now.Before(rec.ExpiresAt):
		return ErrCodeExpired
	}

	ok, err := totp.ValidateCustom(code, rec.Secret, rec.CreatedAt, codeOpts)
	if err != nil || !ok {
		attempts, incErr := s.Store.VerificationCodes().IncrementVerificationAttempts(ctx, rec.ID)
		if incErr != nil {
			l.Error("failed to count verification attempt", slog.String("code_id", rec.ID), slog.Any("error", incErr))
		}
		l.Warn("verification code mismatch", slog.String("code_id", rec.ID), slog.Int("attempts", attempts))
		if attempts >= domain.MaxVerificationAttempts {
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}

	if err := s.Store.VerificationCodes().MarkVerificationCodeUsed(ctx, rec.ID, now); err != nil {
		return fmt.Errorf("mark verification code used: %w", err)
	}
	l.Info("phone number verified", slog.String("code_id", rec.ID))
	return nil
}

// PhoneVerified reports whether phone redeemed a code created within the
// last VerificationCodeTTL. It is read-only.
func (s *PhoneVerificationService) PhoneVerified(ctx context.Context, phone string) (bool, error) {
	_, ok, err := s.verifiedCode(ctx, phone)
	return ok, err
}

func (s *PhoneVerificationService) verifiedCode(ctx context.Context, phone string) (domain.VerificationCode, bool, error) {
	since := s.now().Add(-domain.VerificationCodeTTL)
	rec, err := s.Store.VerificationCodes().GetLatestUsedVerificationCode(ctx, NormalizePhone(phone), domain.PurposePhone, since)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.VerificationCode{}, false, nil
	case err != nil:
		return domain.VerificationCode{}, false, err
	}
	return rec, true, nil
}

func (s *PhoneVerificationService) siteName() string {
	if s.SiteName == "" {
		return "HiveCert"
	}
	return s.SiteName
}
