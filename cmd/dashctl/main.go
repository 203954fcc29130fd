package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"dashboardWs/internal/shared/logging"
)

var rootCmd = &cobra.Command{
	Use:   "dashctl",
	Short: "dashctl validates, renders and streams dashboards",
	Long:  `dashctl works with dashboard layouts and data documents locally and against a running dashboard server.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level, _ := cmd.Flags().GetString("log-level")
		slog.SetDefault(logging.New(os.Stderr, logging.Config{Level: level}))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level written to stderr (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
