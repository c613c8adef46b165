package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/headtrack/internal/utils"
	"github.com/andresmejia3/headtrack/internal/worker"
	"github.com/spf13/cobra"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List the cameras the tracker can open",
	Run: func(cmd *cobra.Command, args []string) {
		cameras, err := worker.ListCameras(cmd.Context(), trackerPath)
		if err != nil {
			var enumErr *worker.EnumerationError
			if errors.As(err, &enumErr) && enumErr.Logs != "" {
				fmt.Fprintf(os.Stderr, "\nTRACKER LOGS:\n%s\n", enumErr.Logs)
			}
			utils.Die("Failed to list cameras", err, nil)
		}

		if len(cameras) == 0 {
			fmt.Println("No cameras found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		fmt.Fprintln(w, "--\t----")
		for _, c := range cameras {
			fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
		}
		w.Flush()
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the tracking model tiers",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TIER\tDESCRIPTION")
		fmt.Fprintln(w, "----\t-----------")
		for _, m := range worker.Models {
			marker := ""
			if m.Tier == worker.DefaultModel {
				marker = " (default)"
			}
			fmt.Fprintf(w, "%d\t%s%s\n", m.Tier, m.Description, marker)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(camerasCmd)
	rootCmd.AddCommand(modelsCmd)
}
