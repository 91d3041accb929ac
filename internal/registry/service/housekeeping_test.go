package service

import (
	"context"
	"testing"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/metrics"
	"github.com/hivecert/hivecert/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHousekeeping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	now := h.clock.Now()
	past := now.Add(-time.Minute)

	// A pending email registration whose link has lapsed.
	admin, _ := registerByEmail(t, h)
	for id, tok := range h.store.tokens {
		tok.ExpiresAt = past
		h.store.tokens[id] = tok
	}

	used := now.Add(-time.Hour)
	for _, tok := range []domain.ConfirmationToken{
		{ID: "tok-used", AdminID: admin.ID, TokenHash: "a", ExpiresAt: past, UsedAt: &used},
		{ID: "tok-live", AdminID: admin.ID, TokenHash: "b", ExpiresAt: now.Add(time.Hour)},
	} {
		require.NoError(t, h.store.CreateConfirmationToken(ctx, tok))
	}
	for _, c := range []domain.VerificationCode{
		{ID: "code-expired", Identifier: "+61400111222", Purpose: domain.PurposePhone, ExpiresAt: past},
		{ID: "code-claimed", Identifier: "+61400111222", Purpose: domain.PurposePhone, ExpiresAt: past, AdminID: admin.ID},
		{ID: "code-live", Identifier: "+61400111222", Purpose: domain.PurposePhone, ExpiresAt: now.Add(time.Minute)},
	} {
		require.NoError(t, h.store.CreateVerificationCode(ctx, c))
	}

	m := metrics.New()
	svc := &HousekeepingService{Store: h.store, Logger: slogx.Discard(), Metrics: m, Now: h.clock.Now}
	svc.Run(ctx)

	require.ElementsMatch(t, []string{"tok-used", "tok-live"}, tokenIDs(h.store))
	require.ElementsMatch(t, []string{"code-claimed", "code-live"}, codeIDs(h.store))

	require.Equal(t, float64(1), testutil.ToFloat64(m.HousekeepingDeleted.WithLabelValues("verification_codes")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.HousekeepingDeleted.WithLabelValues("confirmation_tokens")))

	// A second pass finds nothing.
	svc.Run(ctx)
	require.Len(t, tokenIDs(h.store), 2)
}

func tokenIDs(s *memStore) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.tokens {
		ids = append(ids, id)
	}
	return ids
}

func codeIDs(s *memStore) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.codes {
		ids = append(ids, id)
	}
	return ids
}
