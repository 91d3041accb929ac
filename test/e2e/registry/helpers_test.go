//go:build integration

package registry_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/hivecert/hivecert/internal/registry/app"
	"github.com/hivecert/hivecert/pkg/httpx"
	"github.com/hivecert/hivecert/pkg/registrysdk"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

/*
 * Shared fixture for the registry end-to-end tests: one PostgreSQL
 * container, one application served over httptest, and a fake mail and SMS
 * provider capturing what the application sends.
 */

var (
	baseURL  string
	db       *pgxpool.Pool
	provider = &fakeProvider{}
)

const testPassword = "correct-horse-battery"

// TestMain starts the fixture once for all tests.
func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	fmt.Fprintf(os.Stdout, "Starting PostgreSQL container...")
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("hivecert"),
		tcpostgres.WithUsername("hivecert"),
		tcpostgres.WithPassword("hivecert"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to start PostgreSQL: %v\n", err)
		return 1
	}
	defer func() { _ = testcontainers.TerminateContainer(ctr) }()
	fmt.Fprintf(os.Stdout, " done\n")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
		return 1
	}

	db, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open pool: %v\n", err)
		return 1
	}
	defer db.Close()

	providerSrv := httptest.NewServer(provider)
	defer providerSrv.Close()

	dir, err := os.MkdirTemp("", "registry-e2e")
	if err != nil {
		fmt.Fprintf(os.Stderr, "temp dir: %v\n", err)
		return 1
	}
	defer func() { _ = os.RemoveAll(dir) }()

	// Tests make many rapid requests from one address
	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	httpx.StrictLimit, httpx.ModerateLimit = relaxed, relaxed

	application, err := app.New(app.Config{
		DatabaseURL:          dsn,
		AdminDatabaseURL:     dsn,
		SessionSecret:        "e2e-session-secret-0123456789abcdef",
		SessionTTL:           time.Hour,
		Issuer:               "hivecert",
		BaseURL:              "https://console.hivecert.test",
		SiteName:             "HiveCert",
		StructureTimeout:     30 * time.Second,
		PhoneEmailDomain:     "phone.hivecert.local",
		DefaultMaxUsers:      50,
		DefaultMaxStorageMB:  1024,
		MailAPIURL:           providerSrv.URL,
		MailFrom:             "HiveCert <no-reply@hivecert.test>",
		SMSAPIURL:            providerSrv.URL,
		SMSFrom:              "HiveCert",
		PepperFile:           filepath.Join(dir, "pepper"),
		Env:                  "test",
		LogLevel:             "warn",
		LogFormat:            "json",
		ShutdownGracePeriod:  5 * time.Second,
		HousekeepingInterval: time.Hour,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start application: %v\n", err)
		return 1
	}
	defer func() { _ = application.Shutdown() }()

	srv := httptest.NewServer(application.Handler())
	defer srv.Close()
	baseURL = srv.URL

	return m.Run()
}

// fakeProvider stands in for the transactional email and SMS APIs.
type fakeProvider struct {
	mu     sync.Mutex
	emails map[string][]capturedMessage
	texts  map[string][]capturedMessage
}

type capturedMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Body    string `json:"body"`
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg capturedMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch r.URL.Path {
	case "/messages":
		if p.emails == nil {
			p.emails = map[string][]capturedMessage{}
		}
		p.emails[msg.To] = append(p.emails[msg.To], msg)
	case "/sms":
		if p.texts == nil {
			p.texts = map[string][]capturedMessage{}
		}
		p.texts[msg.To] = append(p.texts[msg.To], msg)
	default:
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

var (
	tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)
	codePattern  = regexp.MustCompile(`\b(\d{6})\b`)
)

// confirmationToken returns the token from the latest email sent to addr.
func confirmationToken(t *testing.T, addr string) string {
	t.Helper()
	provider.mu.Lock()
	defer provider.mu.Unlock()

	sent := provider.emails[addr]
	require.NotEmpty(t, sent, "no email sent to %s", addr)
	m := tokenPattern.FindStringSubmatch(sent[len(sent)-1].HTML)
	require.Len(t, m, 2, "no confirmation link in email")
	return m[1]
}

// phoneCode returns the code from the latest text sent to phone.
func phoneCode(t *testing.T, phone string) string {
	t.Helper()
	provider.mu.Lock()
	defer provider.mu.Unlock()

	sent := provider.texts[phone]
	require.NotEmpty(t, sent, "no sms sent to %s", phone)
	m := codePattern.FindStringSubmatch(sent[len(sent)-1].Body)
	require.Len(t, m, 2, "no code in sms")
	return m[1]
}

// uniqueEmail and uniquePhone keep tests independent on the shared database.
func uniqueEmail() string {
	return fmt.Sprintf("%d@e2e.hivecert.test", time.Now().UnixNano())
}

func uniquePhone() string {
	return fmt.Sprintf("+6140%07d", time.Now().UnixNano()%10_000_000)
}

func emailRegistration(email string) registrysdk.RegisterRequest {
	return registrysdk.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  testPassword,
		Role:      "admin",
	}
}

func schemaExists(t *testing.T, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(t.Context(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`, name,
	).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func tenantTables(t *testing.T, schema string) []string {
	t.Helper()
	rows, err := db.Query(t.Context(),
		`SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`, schema)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

// bootstrapUserConfirmed reads is_confirmed of the bootstrap user in schema.
func bootstrapUserConfirmed(t *testing.T, schema, adminID string) bool {
	t.Helper()
	var confirmed bool
	err := db.QueryRow(t.Context(),
		fmt.Sprintf(`SELECT is_confirmed FROM %q.users WHERE admin_global_id = $1 AND is_admin`, schema), adminID,
	).Scan(&confirmed)
	require.NoError(t, err)
	return confirmed
}

func adminCount(t *testing.T, email string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(t.Context(), `SELECT count(*) FROM admins WHERE email = $1`, email).Scan(&n))
	return n
}

func requireAPIError(t *testing.T, err error, status int) *registrysdk.APIError {
	t.Helper()
	require.Error(t, err)
	var apiErr *registrysdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Message)
	return apiErr
}
