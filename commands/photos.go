package commands

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-fullsnack/internal/data/api"
	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
	"github.com/spf13/cobra"
)

var photosFormat string

var photosCmd = &cobra.Command{
	Use:   "photos <query>",
	Short: "Search photos to attach to entries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPhotos,
}

func init() {
	rootCmd.AddCommand(photosCmd)
	photosCmd.Flags().StringVarP(&photosFormat, "format", "o", "table",
		"Output format (table, json, csv)")
}

func runPhotos(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	photos, err := a.SearchPhotos(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("photo search failed: %s", api.UserMessage(err))
	}
	return writeReport(cmd.OutOrStdout(), photosFormat, formatter.PhotosTable(photos), photos)
}
