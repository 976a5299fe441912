package main

import (
	"domainwatch/internal/report"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func lookupCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "lookup <domain>...",
		Short: "Resolves domains through WHOIS only and prints what was found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()

			r := getResolver(a.cfg, metrics.New())
			records := make([]domain.Record, 0, len(args))
			for _, name := range args {
				if ctx.Err() != nil {
					break
				}

				rec, err := r.Resolve(ctx, name)
				if err != nil {
					logger.Warn(ctx, "could not resolve domain", zap.String("domain", name), zap.Error(err))

					continue
				}
				records = append(records, *rec)
			}

			return report.New(os.Stdout).Render(records, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(report.FormatTable), "Output format: table or json")

	return cmd
}
