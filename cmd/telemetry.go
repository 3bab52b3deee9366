package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/culturefeed/curator-cli/internal/store"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Print the latest persisted telemetry snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		snap, err := st.LatestTelemetry(ctx)
		if err != nil {
			return err
		}
		if snap == nil {
			fmt.Println("no telemetry recorded yet")
			return nil
		}

		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode snapshot")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(telemetryCmd)
}
