package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/metrics"
	"github.com/hivecert/hivecert/internal/registry/store"
)

// Mismatch kinds reported by reconciliation.
const (
	MismatchMissingSchema     = "missing_schema"
	MismatchMissingUser       = "missing_user"
	MismatchTenantUnreachable = "tenant_unreachable"
	MismatchConfirmationDrift = "confirmation_drift"
	MismatchOrphanSchema      = "orphan_schema"
)

// Mismatch is one inconsistency between an administrator and its tenant.
type Mismatch struct {
	Kind     string
	AdminID  string
	Schema   string
	Repaired bool
}

// ReconcileReport summarises a reconciliation pass.
type ReconcileReport struct {
	Checked    int
	Mismatches []Mismatch
}

// ReconciliationService checks the cross-namespace link between every
// administrator and the bootstrap user in its namespace. Nothing in the
// database enforces that link, so this is the only place it is verified.
//
// admins.is_active is authoritative; a bootstrap user whose is_confirmed
// disagrees is updated. Missing namespaces, missing users and namespaces
// without an owner are reported, never created or dropped.
type ReconciliationService struct {
	Store   store.Store
	Schemas store.SchemaAdmin
	Tenants store.TenantConnector
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (s *ReconciliationService) Run(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	admins, err := s.Store.Admins().ListAdmins(ctx)
	if err != nil {
		return report, classifyStoreError(err, "list administrators")
	}
	schemas, err := s.Schemas.ListSchemas(ctx)
	if err != nil {
		return report, classifyStoreError(err, "list schemas")
	}

	present := make(map[string]bool, len(schemas))
	for _, name := range schemas {
		present[name] = false
	}

	for _, admin := range admins {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		if _, ok := present[admin.SchemaName]; !ok {
			report.add(s.record(Mismatch{Kind: MismatchMissingSchema, AdminID: admin.ID, Schema: admin.SchemaName}))
			continue
		}
		present[admin.SchemaName] = true

		if m, found := s.checkTenant(ctx, admin); found {
			report.add(s.record(m))
		}
	}

	for name, owned := range present {
		if !owned {
			report.add(s.record(Mismatch{Kind: MismatchOrphanSchema, Schema: name}))
		}
	}

	s.Logger.Info("reconciliation completed",
		slog.Int("checked", report.Checked),
		slog.Int("mismatches", len(report.Mismatches)),
	)
	return report, nil
}

func (s *ReconciliationService) checkTenant(ctx context.Context, admin domain.Admin) (Mismatch, bool) {
	m := Mismatch{AdminID: admin.ID, Schema: admin.SchemaName}

	conn, err := s.Tenants.Open(ctx, admin.SchemaName)
	if err != nil {
		m.Kind = MismatchTenantUnreachable
		s.Logger.Warn("tenant unreachable", slog.String("schema", admin.SchemaName), slog.Any("error", err))
		return m, true
	}
	defer func() { _ = conn.Close(context.WithoutCancel(ctx)) }()

	user, err := conn.Users().GetTenantUserByAdminID(ctx, admin.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		m.Kind = MismatchMissingUser
		return m, true
	case err != nil:
		m.Kind = MismatchTenantUnreachable
		s.Logger.Warn("failed to read bootstrap user", slog.String("schema", admin.SchemaName), slog.Any("error", err))
		return m, true
	case user.IsConfirmed == admin.IsActive:
		return m, false
	}

	m.Kind = MismatchConfirmationDrift
	if err := conn.Users().SetTenantUserConfirmed(ctx, admin.ID, admin.IsActive); err != nil {
		s.Logger.Error("failed to repair bootstrap user confirmation",
			slog.String("admin_id", admin.ID),
			slog.Any("error", err),
		)
		return m, true
	}
	m.Repaired = true
	return m, true
}

func (s *ReconciliationService) record(m Mismatch) Mismatch {
	s.Metrics.ObserveMismatch(m.Kind)
	s.Logger.Warn("tenant inconsistency",
		slog.String("kind", m.Kind),
		slog.String("admin_id", m.AdminID),
		slog.String("schema", m.Schema),
		slog.Bool("repaired", m.Repaired),
	)
	return m
}

func (r *ReconcileReport) add(m Mismatch) { r.Mismatches = append(r.Mismatches, m) }
