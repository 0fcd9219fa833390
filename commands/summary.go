package commands

import (
	"fmt"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/data/api"
	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	summaryFormat string
	summaryWeek   string
	summaryExpand bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show daily and weekly calorie totals",
}

var summaryDaysCmd = &cobra.Command{
	Use:   "days",
	Short: "Daily totals of one week",
	Args:  cobra.NoArgs,
	RunE:  runSummaryDays,
}

var summaryWeeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "Weekly totals",
	Args:  cobra.NoArgs,
	RunE:  runSummaryWeeks,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.AddCommand(summaryDaysCmd, summaryWeeksCmd)

	summaryCmd.PersistentFlags().StringVarP(&summaryFormat, "format", "o", "table",
		"Output format (table, json, csv)")
	summaryDaysCmd.Flags().StringVar(&summaryWeek, "week", "",
		"Any date in the week to show as YYYY-MM-DD (default this week)")
	summaryWeeksCmd.Flags().BoolVarP(&summaryExpand, "expand", "e", false,
		"Include the days of every week")
}

func runSummaryDays(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	day := a.TimeProvider().Now()
	if summaryWeek != "" {
		if day, err = model.ParseDate(summaryWeek); err != nil {
			return fmt.Errorf("invalid week %q, expected YYYY-MM-DD", summaryWeek)
		}
	}
	start := model.FormatDate(model.WeekStart(day))

	days, err := a.Client().ListDays(cmd.Context(), start)
	if err != nil {
		return fmt.Errorf("failed to list days: %s", api.UserMessage(err))
	}
	return writeReport(cmd.OutOrStdout(), summaryFormat, formatter.DaysTable(days), days)
}

func runSummaryWeeks(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	weeks, err := a.Client().ListWeeks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list weeks: %s", api.UserMessage(err))
	}

	if summaryExpand {
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(4)
		for i := range weeks {
			i := i
			g.Go(func() error {
				days, err := a.Client().ListDays(ctx, weeks[i].StartDate)
				if err != nil {
					return fmt.Errorf("week %s: %s", weeks[i].StartDate, api.UserMessage(err))
				}
				weeks[i].Days = days
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to list days: %w", err)
		}
	}
	return writeReport(cmd.OutOrStdout(), summaryFormat, formatter.WeeksTable(weeks), weeks)
}
