package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/culturefeed/curator-cli/internal/model"
	"github.com/culturefeed/curator-cli/internal/pipeline"
	"github.com/culturefeed/curator-cli/internal/store"
)

var enrichVenue string

var enrichCmd = &cobra.Command{
	Use:   "enrich <event.json>",
	Short: "Run one event through the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var evt model.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			return eris.Wrap(err, "decode event")
		}

		orch := pipeline.NewOrchestrator(env.Doc, env.Provider, nil)
		result, err := orch.RunEnrichment(ctx, evt, enrichVenue)
		if err != nil {
			return err
		}

		if _, err := env.Store.SaveEvent(ctx, store.NewEventRecord(enrichVenue, result.Event)); err != nil {
			return err
		}

		out, err := json.MarshalIndent(result.Event, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode result")
		}
		fmt.Println(string(out))

		if result.FailFast {
			return eris.Errorf("validation failed: %v", result.ValidationErrors)
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichVenue, "venue", "", "venue key from the curation document (required)")
	_ = enrichCmd.MarkFlagRequired("venue")
	rootCmd.AddCommand(enrichCmd)
}
