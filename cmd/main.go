// Package main provides the CLI entrypoint of domainwatch.
// It wires subcommands (check, lookup, accounts), loads configuration, and initializes logging.
package main

import (
	"context"
	"domainwatch/internal/config"
	"domainwatch/pkg/logger"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand needs once the root command has run its
// pre-run hook.
type app struct {
	configPath string
	verbose    bool

	cfg *config.Config
	// cfgErr is config.ErrNoAccounts when no registrar account is usable.
	// Commands that talk to the registrar fail with it, the others ignore it.
	cfgErr error
	runID  string
}

// load reads the optional .env file and the configuration, then configures
// the logger. It is the root command's PersistentPreRunE.
func (a *app) load(*cobra.Command, []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("could not load .env file: %v", err)
	}

	log.Println("loading config ...")
	cfg, err := config.Load(a.configPath)
	if err != nil && !errors.Is(err, config.ErrNoAccounts) {
		return err
	}
	a.cfg = cfg
	a.cfgErr = err

	logger.Setup(cfg.Environment, a.verbose)
	a.runID = uuid.NewString()

	return nil
}

// context returns a context canceled on SIGINT or SIGTERM whose logger
// carries the run identifier.
func (a *app) context() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	return logger.WithFields(ctx, zap.String("run_id", a.runID)), cancel
}

// requireAccounts fails when no registrar account could be configured.
func (a *app) requireAccounts(ctx context.Context) error {
	if a.cfgErr != nil {
		logger.Error(ctx, "could not configure any registrar account", zap.Error(a.cfgErr))

		return a.cfgErr
	}

	return nil
}

// main sets up the root Cobra command and registers subcommands before
// executing the CLI.
func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:               "domainwatch",
		Short:             "Monitors domain expirations across registrar accounts and WHOIS",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.json", "Config File Path")
	rootCmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Log at debug level")

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		checkCommand(a),
		lookupCommand(a),
		accountsCommand(a),
	)

	err := rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
