package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/knapsackanneal/internal/config"
	"github.com/cwbudde/knapsackanneal/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
	historyLast   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored run records",
	Long: `Inspect and clean the run records and traces written by "run --save"
and the job server, and print the result log history.`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored runs",
	Long:  `Display all stored runs with run ID, timestamp, solver, iterations, final value and size on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRuns(cmd.OutOrStdout(), cfg.Store.DataDir)
	},
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRun(cmd.OutOrStdout(), cfg.Store.DataDir, args[0])
	},
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old run records",
	Long: `Delete old run records based on retention policy.
You can keep only the newest N runs or delete runs older than N days.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cleanRuns(cmd.OutOrStdout(), cmd.InOrStdin(), cfg.Store.DataDir, keepLast, olderThanDays, forceClean)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the result log",
	Long:  `Parses the result log and prints one line per recorded run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showHistory(cmd.OutOrStdout(), cfg.Run.LogPath, historyLast)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(showRunCmd)
	runsCmd.AddCommand(cleanRunsCmd)
	runsCmd.AddCommand(historyCmd)

	d := config.Default()
	runsCmd.PersistentFlags().String("data-dir", d.Store.DataDir, "Directory for run records and traces")
	historyCmd.Flags().String("log", d.Run.LogPath, "Result log path")
	historyCmd.Flags().IntVar(&historyLast, "last", 0, "Only print the last N entries (0 = all)")

	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func listRuns(out io.Writer, dataDir string) error {
	runStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}

	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.Before(infos[j].Timestamp)
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTIMESTAMP\tSOLVER\tITERATIONS\tVALUE\tSIZE")
	fmt.Fprintln(w, "------\t---------\t------\t----------\t-----\t----")

	for _, info := range infos {
		size, err := getDirSize(runStore.RunDir(info.RunID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			shortID(info.RunID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Solver,
			info.Iterations,
			info.FinalValue,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Fprintf(out, "\nTotal runs: %d\n", len(infos))
	return nil
}

func showRun(out io.Writer, dataDir, runID string) error {
	runStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}

	record, err := runStore.LoadRun(runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run: %s\n", record.RunID)
	fmt.Fprintf(out, "Timestamp: %s\n", record.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(out, "Items: %s (%d items, capacity %d)\n", record.Config.ItemsPath, record.Items, record.Capacity)
	fmt.Fprintf(out, "Solver: %s\n", record.ToInfo().Solver)
	fmt.Fprintf(out, "Parameters: T0=%g rate=%g iterations=%d seed=%d\n",
		record.Config.InitialTemperature, record.Config.CoolingRate, record.Config.Iterations, record.Config.Seed)
	fmt.Fprintf(out, "Value: %d (initial %d)\n", record.FinalValue, record.InitialValue)
	fmt.Fprintf(out, "Weight: %d\n", record.FinalWeight)
	fmt.Fprintf(out, "Accepted Moves: %d\n", record.Accepted)
	fmt.Fprintf(out, "Final Temperature: %g\n", record.FinalTemperature)
	fmt.Fprintf(out, "Elapsed: %s\n", record.Elapsed.Round(time.Millisecond))

	ids := make([]string, len(record.SelectedIDs))
	for i, id := range record.SelectedIDs {
		ids[i] = fmt.Sprint(id)
	}
	fmt.Fprintf(out, "Selected (%d): %s\n", len(ids), strings.Join(ids, ","))
	return nil
}

func cleanRuns(out io.Writer, in io.Reader, dataDir string, keepLast, olderThanDays int, force bool) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	runStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}

	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs to clean.")
		return nil
	}

	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (value %d, %s)\n",
			shortID(info.RunID),
			info.FinalValue,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !force {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		response, _ := bufio.NewReader(in).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := runStore.DeleteRun(info.RunID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.RunID, "error", err)
			failed++
		} else {
			slog.Info("Deleted run", "run_id", info.RunID)
			deleted++
		}
	}

	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion returns the runs older than olderThanDays plus, when
// keepLast is set, every run beyond the newest keepLast. Oldest first.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int, now time.Time) []store.RunInfo {
	sorted := make([]store.RunInfo, len(infos))
	copy(sorted, infos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = now.AddDate(0, 0, -olderThanDays)
	}
	excess := 0
	if keepLast > 0 && len(sorted) > keepLast {
		excess = len(sorted) - keepLast
	}

	var toDelete []store.RunInfo
	for i, info := range sorted {
		if i < excess || (!cutoff.IsZero() && info.Timestamp.Before(cutoff)) {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

func showHistory(out io.Writer, logPath string, last int) error {
	entries, err := store.ReadResultLog(logPath)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintf(out, "No results in %s.\n", logPath)
		return nil
	}

	if last > 0 && len(entries) > last {
		entries = entries[len(entries)-last:]
	}

	best := entries[0]
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tT0\tRATE\tITERATIONS\tWEIGHT\tVALUE\tITEMS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%g\t%g\t%d\t%d\t%d\t%d\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.InitialTemperature,
			e.CoolingRate,
			e.Iterations,
			e.FinalWeight,
			e.FinalValue,
			len(e.SelectedIDs),
		)
		if e.FinalValue > best.FinalValue {
			best = e
		}
	}
	w.Flush()

	fmt.Fprintf(out, "\nEntries: %d, best value: %d (weight %d)\n", len(entries), best.FinalValue, best.FinalWeight)
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
