package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/metrics"
	"github.com/hivecert/hivecert/internal/registry/service"
	"github.com/hivecert/hivecert/pkg/httpx"
	"github.com/hivecert/hivecert/pkg/jwtx"
	"github.com/hivecert/hivecert/pkg/slogx"

	_ "github.com/hivecert/hivecert/api/registry" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	metrics      *metrics.Metrics
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	db      Pinger
	adminDB Pinger

	RegistrationService *service.RegistrationService
	ConfirmationService *service.ConfirmationService
	PhoneService        *service.PhoneVerificationService
	LoginService        *service.LoginService

	// SecureCookies marks session cookies Secure.
	SecureCookies bool
}

func NewRouter(
	verifier jwtx.Verifier,
	m *metrics.Metrics,
	buildVersion string,
	db, adminDB Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		metrics:      m,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		db:           db,
		adminDB:      adminDB,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerRegistration()
	r.registerPhoneOTP()
	r.registerSession()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			HiveCert Tenant Registry API
//	@version		0.1.0
//	@description	Self-service registration for HiveCert tenants. Every tenant gets its own PostgreSQL namespace holding its apiaries, hives, inspections, harvests and certifications.
//	@description
//	@description				Registration is confirmed by email link or by a phone number verified beforehand with a one-time code.
//
//	@contact.name				HiveCert Team
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token from /v1/admin/login. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h under pattern, timed under route.
func (r *Router) handle(pattern, route string, h http.Handler, mws ...httpx.Middleware) {
	mws = append([]httpx.Middleware{r.metrics.Middleware(route)}, mws...)
	r.Mux.Handle(pattern, httpx.Chain(h, mws...))
}

func (r *Router) registerRegistration() {
	register := &RegisterHandler{RegistrationService: r.RegistrationService}

	// /register - strict rate limit by IP; any other method gets a JSON 405
	r.handle("/v1/admin/register", "register", register,
		httpx.AllowMethods(http.MethodPost),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)

	confirm := &ConfirmHandler{ConfirmationService: r.ConfirmationService}

	// GET /confirm - followed from email clients, public limit
	r.handle("GET /v1/admin/confirm", "confirm", http.HandlerFunc(confirm.HandleConfirm),
		httpx.RateLimitByIP(httpx.PublicLimit),
	)

	// POST /confirm/resend - strict, it sends mail
	r.handle("POST /v1/admin/confirm/resend", "confirm_resend", http.HandlerFunc(confirm.HandleResend),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
}

func (r *Router) registerPhoneOTP() {
	h := &PhoneOTPHandler{PhoneVerificationService: r.PhoneService}

	// Both strict: send costs an SMS, verify is a guessing target
	r.handle("POST /v1/otp/phone/send", "otp_send", http.HandlerFunc(h.HandleSend),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
	r.handle("POST /v1/otp/phone/verify", "otp_verify", http.HandlerFunc(h.HandleVerify),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
}

func (r *Router) registerSession() {
	h := &LoginHandler{LoginService: r.LoginService, SecureCookie: r.SecureCookies}

	// POST /login - strict rate limit by IP (credential guessing)
	r.handle("POST /v1/admin/login", "login", http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)

	// GET /me - authenticated, moderate limit per admin
	r.handle("GET /v1/admin/me", "me", http.HandlerFunc(h.HandleMe),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole(domain.RoleAdmin.String(), domain.RoleSuperAdmin.String()),
		httpx.RateLimitByAdmin(httpx.ModerateLimit),
	)
}

func (r *Router) registerSystem() {
	// Probes and scrapes are polled; not rate limited per IP beyond the public profile
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.db, r.adminDB),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
