package tenantschema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hivecert/hivecert/pkg/slogx"
)

// EnvDatabaseURL carries the DSN to the tool so it never shows up in the
// process list.
const EnvDatabaseURL = "TENANTCTL_DATABASE_URL"

const maxOutput = 4 << 10

// CommandApplier applies the structure out of process by running
// `<Path> migrate --schema <name>` (the tenantctl binary). The deadline is
// enforced here, not by the tool.
type CommandApplier struct {
	Path    string
	DSN     string
	Timeout time.Duration

	// Args are prepended to the migrate subcommand. Mostly for tests.
	Args []string
}

func (a *CommandApplier) Apply(ctx context.Context, schema string) error {
	if err := ValidateName(schema); err != nil {
		return err
	}

	ctx, cancel := withDeadline(ctx, a.Timeout)
	defer cancel()

	args := append(append([]string{}, a.Args...), "migrate", "--schema", schema)
	cmd := exec.CommandContext(ctx, a.Path, args...) // #nosec G204 - path comes from operator config
	cmd.Env = append(os.Environ(), EnvDatabaseURL+"="+a.DSN)
	cmd.WaitDelay = 2 * time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()

	log := slogx.FromContext(ctx).With("schema", schema, "tool", a.Path, "duration_ms", time.Since(start).Milliseconds())
	if err == nil {
		log.Debug("structure tool finished")
		return nil
	}

	if ctxErr := classify(ctx, schema, nil); ctxErr != nil {
		log.Warn("structure tool killed", "err", ctxErr)
		return ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		tail := tailString(out.String(), maxOutput)
		log.Warn("structure tool exited non-zero", "exit_code", exitErr.ExitCode(), "output", tail)
		return fmt.Errorf("%w: schema %q: exit code %d: %s", ErrFailed, schema, exitErr.ExitCode(), tail)
	}
	return fmt.Errorf("%w: schema %q: %v", ErrFailed, schema, err)
}

func tailString(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
