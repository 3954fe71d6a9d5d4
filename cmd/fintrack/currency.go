package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
)

func currencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currency",
		Short: "Inspect or change the default currency",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the default currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nil, func(_ context.Context, app *cli.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), app.Setting.Get())
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "codes",
		Short: "List the supported currency codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nil, func(ctx context.Context, app *cli.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(app.Rates.Codes(ctx), " "))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set CODE",
		Short: "Change the default currency, converting every stored amount",
		Args:  cobra.ExactArgs(1),
		RunE:  runCurrencySet,
	})
	return cmd
}

func runCurrencySet(cmd *cobra.Command, args []string) error {
	return withApp(cmd, nil, func(ctx context.Context, app *cli.App) error {
		res, err := app.Reconciler.SetDefaultCurrency(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !res.Rescaled() {
			fmt.Fprintln(out, cli.SubtleStyle.Render("Default currency is already "+res.To))
			return nil
		}
		fmt.Fprintln(out, cli.KeyValues("Default currency changed", [][2]string{
			{"From", res.From},
			{"To", res.To},
			{"Rate", res.Rate.String()},
			{"Transactions", strconv.Itoa(res.Transactions)},
			{"Budgets", strconv.Itoa(res.Budgets)},
		}))
		return nil
	})
}
