package httpx

import (
	"context"

	"github.com/hivecert/hivecert/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyAdminID ctxKey = "admin_id"
	CtxKeySchema  ctxKey = "schema"
	CtxKeyRole    ctxKey = "role"
)

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyAdminID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeySchema, c.Schema)
	ctx = context.WithValue(ctx, CtxKeyRole, c.Role)
	return ctx
}

// AdminIDFromContext returns the authenticated admin id or "".
func AdminIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyAdminID).(string)
	return v
}

// SchemaFromContext returns the tenant schema of the authenticated admin.
func SchemaFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeySchema).(string)
	return v
}

func roleFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyRole).(string)
	return v
}
