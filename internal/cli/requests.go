package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/verinews/relayer/internal/config"
	"github.com/verinews/relayer/internal/model"
	"github.com/verinews/relayer/internal/store"
)

var (
	requestsDB     string
	requestsStatus string
)

// requestsCmd represents the requests command
var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect the durable request store",
	Long: `Requests lists the fact-check requests the relayer has observed,
with their status (pending, fulfilled, failed), attempt counts, and last
errors. Failed rows are the dead-letter queue.`,
	Args: cobra.NoArgs,
	RunE: runRequests,
}

func init() {
	rootCmd.AddCommand(requestsCmd)

	requestsCmd.Flags().StringVar(&requestsDB, "db", "", "request store path (default from config)")
	requestsCmd.Flags().StringVar(&requestsStatus, "status", "", "filter by status: pending, fulfilled, failed")
}

func runRequests(cmd *cobra.Command, args []string) error {
	path := requestsDB
	if path == "" {
		path = config.Default().Store.Path
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("request store %s not found (has the daemon run here?)", path)
	}

	s, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open request store: %w", err)
	}
	defer func() { _ = s.Close() }()

	records, err := s.List(model.RequestStatus(requestsStatus))
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no requests recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REQUEST\tSTATUS\tATTEMPTS\tREQUESTER\tURI\tLAST ERROR")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			rec.RequestID, rec.Status, rec.Attempts, rec.Requester, rec.ContentURI, rec.LastError)
	}
	return w.Flush()
}
