package commands

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-fullsnack/internal/application/app"
	"github.com/penwyp/go-fullsnack/internal/core/cache"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/data/api"
	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
	"github.com/penwyp/go-fullsnack/internal/presentation/interaction"
	"github.com/penwyp/go-fullsnack/internal/util"
	"github.com/spf13/cobra"
)

var (
	listDay    string
	listSort   string
	listFormat string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List and edit food log entries",
}

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the entries of a day",
	Args:  cobra.NoArgs,
	RunE:  runLogList,
}

var logAddCmd = &cobra.Command{
	Use:   "add <food description>",
	Short: "Look up a food and log it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLogAdd,
}

var logNewCmd = &cobra.Command{
	Use:   "new <name> <calories> [protein] [carbs] [fat]",
	Short: "Log an entry with your own values",
	Args:  cobra.RangeArgs(2, 5),
	RunE:  runLogNew,
}

var logUpdateCmd = &cobra.Command{
	Use:   "update <id> field=value...",
	Short: "Change name, calories, protein, carbs, fat or image of an entry",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runLogUpdate,
}

var logRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an entry",
	Args:    cobra.ExactArgs(1),
	RunE:    runLogRemove,
}

var logSetImageCmd = &cobra.Command{
	Use:   "set-image <id> <query>",
	Short: "Attach a photo found by query to an entry",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runLogSetImage,
}

var logLookupCmd = &cobra.Command{
	Use:   "lookup <food description>",
	Short: "Show nutrition for a food without logging it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLogLookup,
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logListCmd, logAddCmd, logNewCmd, logUpdateCmd, logRemoveCmd, logSetImageCmd, logLookupCmd)

	logListCmd.Flags().StringVar(&listDay, "day", "",
		"Day to list as YYYY-MM-DD (default today)")
	logListCmd.Flags().StringVar(&listSort, "sort", "time",
		"Sort by time, calories or name")
	logListCmd.Flags().StringVarP(&listFormat, "format", "o", "table",
		"Output format (table, json, csv)")
}

func runLogList(cmd *cobra.Command, args []string) error {
	field, err := interaction.ParseSortField(listSort)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	day := listDay
	if day == "" {
		day = a.Today()
	} else if _, err := model.ParseDate(day); err != nil {
		return fmt.Errorf("invalid day %q, expected YYYY-MM-DD", day)
	}

	entries, err := a.Client().ListEntries(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("failed to list entries: %s", api.UserMessage(err))
	}

	sorter := interaction.NewEntrySorter()
	sorter.SetField(field)
	entries = sorter.Sorted(entries)

	credit := func(e model.LogEntry) model.AttributionRecord { return cache.Resolve(e, a.Attributions()) }
	table := formatter.EntriesTable(entries, credit, a.TimeProvider().Location())
	return writeReport(cmd.OutOrStdout(), listFormat, table, entries)
}

func runLogAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.AddFood(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to log food: %s", api.UserMessage(err))
	}
	printEntry(cmd, "Logged", entry)
	return nil
}

func runLogNew(cmd *cobra.Command, args []string) error {
	entry, err := app.ParseEntry(args[0], args[1:])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.Gateway().Create(cmd.Context(), entry)
	if err != nil {
		return fmt.Errorf("failed to log entry: %s", api.UserMessage(err))
	}
	printEntry(cmd, "Logged", created)
	return nil
}

func runLogUpdate(cmd *cobra.Command, args []string) error {
	id, err := app.ParseID(args[0])
	if err != nil {
		return err
	}
	patch, err := app.ParsePatch(args[1:])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	updated, err := a.Gateway().Update(cmd.Context(), id, patch)
	if err != nil {
		return fmt.Errorf("failed to update entry: %s", api.UserMessage(err))
	}
	printEntry(cmd, "Updated", updated)
	return nil
}

func runLogRemove(cmd *cobra.Command, args []string) error {
	id, err := app.ParseID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Gateway().Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete entry: %s", api.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d\n", id)
	return nil
}

func runLogSetImage(cmd *cobra.Command, args []string) error {
	id, err := app.ParseID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Gateway().SetImage(cmd.Context(), id, strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("failed to set image: %s", api.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Image set on #%d\n", id)
	if line := formatter.CreditLine(result.Credit); line != "" {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func runLogLookup(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	item, err := a.LookupNutrition(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("lookup failed: %s", api.UserMessage(err))
	}
	entry := item.ToEntry()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, protein %s, carbs %s, fat %s\n",
		entry.FoodName, util.FormatCalories(entry.Calories),
		util.FormatGrams(entry.Protein), util.FormatGrams(entry.Carbs), util.FormatGrams(entry.Fat))
	return nil
}

func printEntry(cmd *cobra.Command, verb string, entry model.LogEntry) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s, %s\n", verb, entry.ID, entry.FoodName, util.FormatCalories(entry.Calories))
}
