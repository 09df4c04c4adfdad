package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	config "github.com/maheshrc27/threads-poster/configs"
	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/internal/repository"
)

type StatusOptions struct {
	Store string
	JSON  bool
}

type storeStatus struct {
	Path    string `json:"path"`
	Total   int    `json:"total"`
	Pending int    `json:"pending"`
	Posted  int    `json:"posted"`
}

// NewStatusCommand creates the status command. It reads the store only and never logs in.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending and posted counts of the post store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "CSV file to inspect (default: STORE_PATH)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, opts *StatusOptions) error {
	path := opts.Store
	if path == "" {
		path = config.LoadStoreConfig().StorePath
	}

	table, err := repository.NewPostRepository(path).Load(cmd.Context())
	if err != nil {
		return err
	}

	st := storeStatus{
		Path:    path,
		Total:   len(table.Records),
		Pending: table.Count(models.PostStatusPending),
		Posted:  table.Count(models.PostStatusPosted),
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "store:   %s\n", st.Path)
	fmt.Fprintf(out, "total:   %d\n", st.Total)
	fmt.Fprintf(out, "pending: %d\n", st.Pending)
	fmt.Fprintf(out, "posted:  %d\n", st.Posted)
	return nil
}
