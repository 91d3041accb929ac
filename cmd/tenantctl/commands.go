package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hivecert/hivecert/internal/registry/store/drivers/postgres"
	"github.com/hivecert/hivecert/internal/registry/tenantschema"
	"github.com/hivecert/hivecert/pkg/slogx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "v0.1.0"

// newRootCmd builds the command tree. Flags fall back to TENANTCTL_*
// variables, so TENANTCTL_DATABASE_URL fills --database-url.
func newRootCmd(out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}

	v := viper.New()
	v.SetEnvPrefix("tenantctl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var logger *slog.Logger

	root := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Manage the structure of HiveCert tenant namespaces",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			logger = slogx.New(slogx.Config{
				Service: "tenantctl",
				Version: version,
				Level:   v.GetString("log-level"),
				Format:  "text",
				Output:  os.Stderr,
			})
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().String("database-url", "", "database holding the tenant namespaces (env TENANTCTL_DATABASE_URL)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	dsn := func() (string, error) {
		url := v.GetString("database-url")
		if url == "" {
			return "", errors.New("no database url: set --database-url or " + tenantschema.EnvDatabaseURL)
		}
		return url, nil
	}

	schemaFlag := func(cmd *cobra.Command) {
		cmd.Flags().String("schema", "", "tenant namespace")
		_ = cmd.MarkFlagRequired("schema")
	}
	schemaName := func() (string, error) {
		name := v.GetString("schema")
		if err := tenantschema.ValidateName(name); err != nil {
			return "", err
		}
		return name, nil
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the tenant structure to a namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := schemaName()
			if err != nil {
				return err
			}
			url, err := dsn()
			if err != nil {
				return err
			}

			applier := &tenantschema.MigrateApplier{DSN: url, Timeout: v.GetDuration("timeout")}
			ctx := slogx.WithContext(cmd.Context(), logger)

			start := time.Now()
			if err := applier.Apply(ctx, name); err != nil {
				return err
			}
			logger.Info("tenant structure applied", "schema", name, "duration_ms", time.Since(start).Milliseconds())
			return nil
		},
	}
	schemaFlag(migrateCmd)
	migrateCmd.Flags().Duration("timeout", tenantschema.DefaultTimeout, "give up after this long")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show the structure version of a namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := schemaName()
			if err != nil {
				return err
			}
			url, err := dsn()
			if err != nil {
				return err
			}

			current, dirty, err := (&tenantschema.MigrateApplier{DSN: url}).Version(name)
			if err != nil {
				return err
			}
			latest, err := tenantschema.LatestVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema=%s version=%d latest=%d dirty=%t\n", name, current, latest, dirty)
			return nil
		},
	}
	schemaFlag(versionCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tenant namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dsn()
			if err != nil {
				return err
			}
			schemas, err := postgres.ConnectSchemaManager(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer schemas.Close()

			names, err := schemas.ListSchemas(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop a namespace and everything in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := schemaName()
			if err != nil {
				return err
			}
			if !v.GetBool("yes") {
				return fmt.Errorf("refusing to drop %q without --yes", name)
			}
			url, err := dsn()
			if err != nil {
				return err
			}
			schemas, err := postgres.ConnectSchemaManager(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer schemas.Close()

			if err := schemas.DropSchema(cmd.Context(), name); err != nil {
				return err
			}
			logger.Warn("namespace dropped", "schema", name)
			return nil
		},
	}
	schemaFlag(dropCmd)
	dropCmd.Flags().Bool("yes", false, "confirm the drop")

	root.AddCommand(migrateCmd, versionCmd, listCmd, dropCmd)
	return root
}
