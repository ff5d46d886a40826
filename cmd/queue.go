package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leafgrid/catalog-sync/internal/model"
	"github.com/leafgrid/catalog-sync/internal/queue"
)

var (
	queueStatuses []string
	queueOutPath  string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the import review queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queue entries by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("queue"); err != nil {
			return err
		}
		ctx := cmd.Context()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		statuses, err := parseStatuses(queueStatuses)
		if err != nil {
			return err
		}

		entries, err := store.ListByStatus(ctx, statuses)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tPRODUKTNAME\tMATCH INFO\tURL")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Status, e.ProductName, e.MatchInfo, e.URL)
		}
		return w.Flush()
	},
}

var queueSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Set the status of a queue entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("queue"); err != nil {
			return err
		}
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "invalid id %q", args[0])
		}
		status, err := model.ParseStatus(args[1])
		if err != nil {
			return err
		}

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SetStatus(ctx, id, status); err != nil {
			return err
		}
		zap.L().Info("status updated", zap.Int64("id", id), zap.String("status", string(status)))
		return nil
	},
}

var queueExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export queue entries to an XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("queue"); err != nil {
			return err
		}
		ctx := cmd.Context()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		statuses, err := parseStatuses(queueStatuses)
		if err != nil {
			return err
		}

		entries, err := store.ListByStatus(ctx, statuses)
		if err != nil {
			return err
		}

		if err := queue.ExportXLSX(entries, queueOutPath); err != nil {
			return err
		}
		zap.L().Info("queue exported",
			zap.String("path", queueOutPath),
			zap.Int("entries", len(entries)),
		)
		return nil
	},
}

// parseStatuses converts the --status flag values, defaulting to every
// non-terminal status.
func parseStatuses(raw []string) ([]model.Status, error) {
	if len(raw) == 0 {
		return []model.Status{model.StatusReady, model.StatusReview, model.StatusDuplicate}, nil
	}
	out := make([]model.Status, len(raw))
	for i, r := range raw {
		s, err := model.ParseStatus(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func init() {
	queueListCmd.Flags().StringSliceVar(&queueStatuses, "status", nil, "statuses to include (default: READY,REVIEW,DUPLICATE)")
	queueExportCmd.Flags().StringSliceVar(&queueStatuses, "status", nil, "statuses to include (default: READY,REVIEW,DUPLICATE)")
	queueExportCmd.Flags().StringVar(&queueOutPath, "out", "import-queue.xlsx", "output file path")

	queueCmd.AddCommand(queueListCmd, queueSetStatusCmd, queueExportCmd)
	rootCmd.AddCommand(queueCmd)
}
