package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/knapsackanneal/internal/server"
)

var (
	serverURL string
	showItems bool
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	statusCmd.Flags().BoolVar(&showItems, "items", false, "Also print the selected item ids of a completed job")
	rootCmd.AddCommand(statusCmd)
}

// jobStatus mirrors the server's status response.
type jobStatus struct {
	server.Job
	Progress float64 `json:"progress"`
	Elapsed  float64 `json:"elapsed"`
	IPS      float64 `json:"ips"`
}

type jobItems struct {
	SelectedIDs []int `json:"selectedIds"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	jobID := args[0]
	if err := getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID); err != nil {
		return err
	}
	if showItems {
		return getJobItems(out, fmt.Sprintf("%s/api/v1/jobs/%s/items", serverURL, jobID))
	}
	return nil
}

func fetchJSON(url string, dst any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(out io.Writer, url string) error {
	var jobs []server.Job
	if _, err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s\n", job.State)
		fmt.Fprintf(out, "  Items: %s\n", job.Config.ItemsPath)
		fmt.Fprintf(out, "  Solver: %s\n", solverName(job.Config.Solver))
		if job.Iteration > 0 || job.State == server.StateCompleted {
			fmt.Fprintf(out, "  Value: %d -> %d (weight %d/%d)\n", job.InitialValue, job.Value, job.Weight, job.Capacity)
		}
		fmt.Fprintln(out)
	}

	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	var status jobStatus
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Items: %s\n", status.Config.ItemsPath)
	fmt.Fprintf(out, "  Solver: %s\n", solverName(status.Config.Solver))
	fmt.Fprintf(out, "  Initial Temperature: %g\n", status.Config.InitialTemperature)
	fmt.Fprintf(out, "  Cooling Rate: %g\n", status.Config.CoolingRate)
	fmt.Fprintf(out, "  Iterations: %d\n", status.Config.Iterations)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Iteration: %d (%.1f%%)\n", status.Iteration, status.Progress*100)
	fmt.Fprintf(out, "  Temperature: %g\n", status.Temperature)
	fmt.Fprintf(out, "  Value: %d (initial %d)\n", status.Value, status.InitialValue)
	fmt.Fprintf(out, "  Weight: %d / %d\n", status.Weight, status.Capacity)
	fmt.Fprintf(out, "  Accepted Moves: %d\n", status.Accepted)

	if status.Elapsed > 0 {
		elapsed := time.Duration(status.Elapsed * float64(time.Second))
		fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}
	if status.IPS > 0 {
		fmt.Fprintf(out, "  Throughput: %.0f iterations/sec\n", status.IPS)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}

	return nil
}

func getJobItems(out io.Writer, url string) error {
	var items jobItems
	if _, err := fetchJSON(url, &items); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nSelected Items (%d):\n", len(items.SelectedIDs))
	for _, id := range items.SelectedIDs {
		fmt.Fprintf(out, "%d,", id)
	}
	fmt.Fprintln(out)
	return nil
}

func solverName(s string) string {
	if s == "" {
		return "anneal"
	}
	return s
}
