package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/paydesk/internal/app"
	"github.com/noah-isme/paydesk/internal/config"
	"github.com/noah-isme/paydesk/internal/obs"
	"github.com/noah-isme/paydesk/internal/ui"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// errActionFailed reports a remote action that resolved to its failure
// branch. The user has already seen the failure notice.
var errActionFailed = errors.New("action failed")

// usageError marks configuration and argument problems.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "paydesk",
		Short:         "Confirmed payment actions against a Frappe site",
		Long:          `paydesk creates or deletes Stripe webhooks for a Stripe Settings record and fetches gateway checkout URLs for payment requests.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "Log level (overrides OBS_LOG_LEVEL)")
	root.PersistentFlags().String("log-format", "", "Log format json|console (overrides OBS_LOG_FORMAT)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	root.AddCommand(newWebhooksCmd(), newPayCmd(), newServeCmd())
	return root
}

// Execute runs the command line and maps the result to an exit code.
func Execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, newRootCmd(), args)
}

func execute(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errActionFailed):
		return exitFailed
	}
	fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	var uerr usageError
	if errors.As(err, &uerr) || isCobraUsage(err) {
		return exitUsage
	}
	return exitFailed
}

func isCobraUsage(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "required flag", "accepts ", "unknown flag", "unknown shorthand"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// loadConfig reads the environment and builds the command logger.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), usageError{err}
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	logger := obs.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel).
		With().Str("env", cfg.AppEnv).Str("cmd", cmd.Name()).Logger()
	return cfg, logger, nil
}

func loadDeps(cmd *cobra.Command) (*app.Dependencies, func(), error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, func() {}, err
	}
	deps, cleanup, err := app.NewDependencies(cmd.Context(), cfg, logger, false)
	if err != nil {
		return nil, cleanup, err
	}
	return deps, cleanup, nil
}

// terminalFor renders on the command's streams, falling back to a plain,
// non-interactive terminal when they are not files.
func terminalFor(cmd *cobra.Command, assumeYes bool) *ui.Terminal {
	in, inOK := cmd.InOrStdin().(*os.File)
	out, outOK := cmd.OutOrStdout().(*os.File)
	if inOK && outOK {
		return ui.NewTerminal(in, out, assumeYes)
	}
	return &ui.Terminal{
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
		AssumeYes: assumeYes,
		Profile:   termenv.Ascii,
	}
}
