package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/headtrack/internal/store"
	"github.com/andresmejia3/headtrack/internal/utils"
	"github.com/andresmejia3/headtrack/internal/worker"
	"github.com/spf13/cobra"
)

// Options holds configuration for the track command
type Options struct {
	CameraID    int
	Model       int
	Visualize   bool
	OSCHost     string
	OSCPort     int
	ReadTimeout string
	Listen      string
	Pitch       float64
	Yaw         float64
	Roll        float64
	Quiet       bool
}

// dbAnnotation marks how a command uses the database: "required" or "optional".
const dbAnnotation = "db"

var (
	// DB is the global database connection shared by subcommands. It stays
	// nil when a command runs without the audit log.
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// trackerPath is the facetracker executable
	trackerPath string
)

// Version is the application version.
const Version = "0.0.1"

var rootCmd = &cobra.Command{
	Use:     "headtrack",
	Short:   "Head tracking relay from OpenSee to OSC",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode := cmd.Annotations[dbAnnotation]
		if mode == "" {
			return nil
		}

		url, explicit := resolveDBURL(dbURL)
		if mode == "optional" && !explicit {
			return nil
		}

		var err error
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), url)
		if err != nil {
			if mode == "optional" {
				fmt.Fprintf(os.Stderr, "⚠️  Session log disabled, database unavailable: %v\n", err)
				DB = nil
				return nil
			}
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

// resolveDBURL picks the connection string from the flag, then the POSTGRES_*
// environment, then a local default. explicit is false only for the default.
func resolveDBURL(flag string) (url string, explicit bool) {
	if flag != "" {
		return flag, true
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := utils.EnvOr("POSTGRES_DB", "headtrack")
		port := utils.EnvOr("POSTGRES_PORT", "5432")
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name), true
	}
	// Fallback to local default if no env vars are present
	return "postgres://localhost:5432/headtrack", false
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/headtrack)")
	rootCmd.PersistentFlags().StringVar(&trackerPath, "tracker", utils.EnvOr("FACETRACKER_BIN", worker.DefaultBinary), "Path to the facetracker executable (env FACETRACKER_BIN)")
}
