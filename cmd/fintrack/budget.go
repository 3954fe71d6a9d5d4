package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage budgets",
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Set the total of a category budget or of the overall budget",
		Args:  cobra.NoArgs,
		RunE:  runBudgetSet,
	}
	set.Flags().Int64("category", 0, "category id")
	set.Flags().Bool("aggregate", false, "set the budget covering all categories")
	set.Flags().String("total", "", "budget total in the default currency")
	set.MarkFlagsMutuallyExclusive("category", "aggregate")
	set.MarkFlagsOneRequired("category", "aggregate")
	_ = set.MarkFlagRequired("total")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove ID",
		Short: "Remove a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid budget id %q", args[0])
			}
			return withApp(cmd, nil, func(ctx context.Context, app *cli.App) error {
				if err := app.Budgets.Remove(ctx, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Budget removed"))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE:  runBudgetList,
	})
	return cmd
}

func runBudgetSet(cmd *cobra.Command, _ []string) error {
	categoryID, _ := cmd.Flags().GetInt64("category")
	total, _ := cmd.Flags().GetString("total")

	scope := core.Aggregate()
	if categoryID != 0 {
		scope = core.PerCategory(categoryID)
	}

	return withApp(cmd, nil, func(ctx context.Context, app *cli.App) error {
		b, err := app.Budgets.Set(ctx, scope, total)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.KeyValues("Budget saved", [][2]string{
			{"Scope", scope.String()},
			{"Current", core.FormatAmount(b.Current)},
			{"Total", core.FormatAmount(b.Total)},
		}))
		return nil
	})
}

func runBudgetList(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, nil, func(ctx context.Context, app *cli.App) error {
		views, err := app.Budgets.List(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(views) == 0 {
			fmt.Fprintln(out, cli.SubtleStyle.Render("No budgets set"))
			return nil
		}
		currency := app.Setting.Get()
		for _, b := range views {
			line := fmt.Sprintf("%4d  %-30s %12s / %12s %s", b.ID, b.Label,
				core.FormatAmount(b.Current), core.FormatAmount(b.Total), currency)
			if b.Exceeded() {
				line = cli.ErrorStyle.Render(line)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	})
}
