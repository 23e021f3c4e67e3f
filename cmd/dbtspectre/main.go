package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/catalog"
	"github.com/ppiankov/dbtspectre/internal/integration"
	"github.com/ppiankov/dbtspectre/internal/logging"
	"github.com/ppiankov/dbtspectre/pkg/config"
)

var (
	version    = "0.1.0"
	verbose    bool
	configPath string
)

// Exit codes for structured error reporting.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitAuth       = 4
	ExitNetwork    = 5
)

func main() {
	root := &cobra.Command{
		Use:   "dbtspectre",
		Short: "dbt downstream impact analysis for pull and merge requests",
		Long: `dbtspectre finds the dbt models changed by a pull or merge request,
looks them up in the Atlan catalog and comments the downstream assets
that the change can break.

When the request is merged, it is linked as a resource on every
impacted model and its materialized table.`,
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a .dbtspectre.yaml file")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewGitHubCmd())
	root.AddCommand(NewGitLabCmd())
	root.AddCommand(NewLocalCmd())
	root.AddCommand(NewVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(classifyError(err))
	}
}

// setup loads the configuration and builds the process logger
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.Verbose = cfg.Verbose || verbose

	return cfg, logging.New(cfg.Verbose), nil
}

func newCatalog(cfg *config.Config, logger *zap.Logger) *catalog.Client {
	return catalog.NewClient(catalog.Options{
		BaseURL:       cfg.InstanceURL,
		Token:         cfg.APIToken,
		Timeout:       cfg.HTTPTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RateLimit:     cfg.RateLimit,
	}, logger)
}

// finish maps the run error to the command result. Authentication failures
// already left a diagnostic comment, so they only fail the job when asked to.
func finish(err error, cfg *config.Config, logger *zap.Logger) error {
	defer func() { _ = logger.Sync() }()

	if err == nil {
		return nil
	}
	if errors.Is(err, integration.ErrAuthFailed) && !cfg.FailOnAuthError {
		logger.Warn("catalog authentication failed, diagnostic comment posted", zap.Error(err))
		return nil
	}
	return err
}

func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, catalog.ErrUnreachable) {
		return ExitNetwork
	}
	if errors.Is(err, catalog.ErrUnauthorized) {
		return ExitAuth
	}

	if os.IsNotExist(err) {
		return ExitNotFound
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "not a directory") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") {
		return ExitNotFound
	}

	if strings.Contains(msg, "dial") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "network is unreachable") {
		return ExitNetwork
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "expected") {
		return ExitInvalidArg
	}

	return ExitInternal
}
