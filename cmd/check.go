package main

import (
	"context"
	"domainwatch/internal/alert"
	"domainwatch/internal/config"
	"domainwatch/internal/mailer"
	"domainwatch/internal/monitor"
	"domainwatch/internal/ratelimit"
	"domainwatch/internal/report"
	"domainwatch/internal/resolver"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"domainwatch/pkg/registrar/godaddy"
	"domainwatch/pkg/whois/likexian"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// pushTimeout bounds the final metrics push.
const pushTimeout = 10 * time.Second

// getResolver creates the WHOIS fallback resolver from the whois and
// special_domains sections.
func getResolver(cfg *config.Config, m *metrics.Metrics) *resolver.Resolver {
	overrides := make(map[string]resolver.Override, len(cfg.SpecialDomains.AI))
	for name, sd := range cfg.SpecialDomains.AI {
		overrides[name] = resolver.Override{ExpiryDate: sd.ExpiryDate, Registrar: sd.Registrar}
	}

	return resolver.New(likexian.New(),
		resolver.WithOverrides(overrides),
		resolver.WithPolicy(resolver.Policy{
			MaxAttempts: cfg.Whois.MaxAttempts,
			RetryDelay:  cfg.Whois.RetryDelay.Std(),
			Timeout:     cfg.Whois.Timeout.Std(),
		}),
		resolver.WithMetrics(m),
	)
}

// getMonitor wires the registrar client, its rate limiter and the resolver
// into a Monitor.
func getMonitor(cfg *config.Config, m *metrics.Metrics) *monitor.Monitor {
	limiter := ratelimit.New(ratelimit.WithMetrics(m))
	client := godaddy.New(&http.Client{}, limiter, godaddy.WithListTimeout(cfg.GoDaddy.Timeout.Std()))

	return monitor.New(client, getResolver(cfg, m), limiter, m, monitor.NewOptions(cfg))
}

// sendAlert mails the records at or below the alert threshold. Failures are
// logged only: the report has already been produced.
func sendAlert(ctx context.Context, cfg *config.Config, m *metrics.Metrics, records []domain.Record) {
	ml, err := mailer.New(mailer.NewOptions(cfg))
	if err != nil {
		logger.Error(ctx, "could not create mailer", zap.Error(err))

		return
	}

	if selected, err := alert.NewEvaluator(alert.NewPolicy(cfg), ml, m).Dispatch(ctx, records); err != nil {
		logger.Error(ctx, "could not send expiry alert", zap.Int("domains", len(selected)), zap.Error(err))
	}
}

// pushMetrics sends the run's metrics to the Pushgateway when one is configured.
func pushMetrics(ctx context.Context, cfg *config.Config, m *metrics.Metrics) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}

	// the run may have been interrupted, the push still goes out
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	if err := m.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.Warn(ctx, "could not push metrics", zap.Error(err))
	}
}

func checkCommand(a *app) *cobra.Command {
	var (
		noAlert bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Checks every domain once, prints the report and sends the expiry alert",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()

			if err := a.requireAccounts(ctx); err != nil {
				return err
			}

			m := metrics.New()
			accounts := a.cfg.RegistrarAccounts()
			logger.Info(ctx, "starting domain check",
				zap.Int("accounts", len(accounts)),
				zap.Int("configured_domains", len(a.cfg.Domains)))

			records, err := getMonitor(a.cfg, m).CheckAll(ctx, accounts, a.cfg.Domains)
			if err != nil {
				logger.Warn(ctx, "domain check interrupted, reporting partial results", zap.Error(err))
			}

			if err := report.New(os.Stdout).Render(records, format); err != nil {
				return err
			}

			if noAlert || ctx.Err() != nil {
				logger.Info(ctx, "skipping expiry alert")
			} else {
				sendAlert(ctx, a.cfg, m, records)
			}

			pushMetrics(ctx, a.cfg, m)

			return nil
		},
	}
	cmd.Flags().BoolVar(&noAlert, "no-alert", false, "Do not send the expiry alert email")
	cmd.Flags().StringVarP(&output, "output", "o", string(report.FormatTable), "Output format: table or json")

	return cmd
}
