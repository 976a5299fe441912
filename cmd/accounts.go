package main

import (
	"domainwatch/internal/monitor"
	"domainwatch/pkg/registrar/godaddy"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func accountsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Lists the configured registrar accounts without their secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			if err := a.requireAccounts(ctx); err != nil {
				return err
			}

			primary := a.cfg.Monitor.PrimaryAccount
			primaryFound := primary == monitor.AllAccounts

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Account", "Endpoint", "Requests/min", "Page Size", "Primary"})
			for _, acc := range a.cfg.RegistrarAccounts() {
				pageSize := acc.PageSize
				if pageSize <= 0 {
					pageSize = godaddy.DefaultPageSize
				}
				polled := ""
				if primary == monitor.AllAccounts || primary == acc.Name {
					polled = "yes"
					primaryFound = true
				}
				table.Append([]string{acc.Name, acc.APIURL, strconv.Itoa(acc.RateLimit()), strconv.Itoa(pageSize), polled})
			}
			table.Render()

			if !primaryFound {
				fmt.Fprintf(os.Stdout, "primary account %q is not configured, registrar domains will not be checked\n", primary)
			}

			return nil
		},
	}
}
