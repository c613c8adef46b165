package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/headtrack/internal/store"
	"github.com/andresmejia3/headtrack/internal/utils"
	"github.com/spf13/cobra"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:         "sessions",
	Short:       "List recent relay sessions from the audit log",
	Annotations: map[string]string{dbAnnotation: "required"},
	Run: func(cmd *cobra.Command, args []string) {
		sessions, err := DB.ListSessions(cmd.Context(), sessionsLimit)
		if err != nil {
			utils.Die("Failed to list sessions", err, nil)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found in database.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tCAMERA\tMODEL\tRECORDS\tMALFORMED\tOUTCOME")
		fmt.Fprintln(w, "--\t-------\t--------\t------\t-----\t-------\t---------\t-------")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				shortID(s.ID.String()),
				s.StartedAt.Local().Format("2006-01-02 15:04"),
				sessionDuration(s),
				s.CameraID, s.Model, s.RecordsDecoded, s.PacketsMalformed,
				sessionOutcome(s))
		}
		w.Flush()
	},
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Maximum number of sessions to show (0 for all)")
	rootCmd.AddCommand(sessionsCmd)
}

func sessionDuration(s store.SessionRecord) string {
	if s.Running() {
		return "-"
	}
	return utils.FmtDuration(s.StoppedAt.Sub(s.StartedAt))
}

func sessionOutcome(s store.SessionRecord) string {
	switch {
	case s.Running():
		return "running"
	case s.ErrorKind != "":
		return fmt.Sprintf("%s: %s", s.ErrorKind, s.ErrorMessage)
	}
	return "ok"
}
