package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/culturefeed/curator-cli/internal/model"
	"github.com/culturefeed/curator-cli/internal/pipeline"
	"github.com/culturefeed/curator-cli/internal/store"
)

var batchLimit int

// batchItem is one line of the batch input file.
type batchItem struct {
	Venue string      `json:"venue"`
	Event model.Event `json:"event"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <events.jsonl>",
	Short: "Batch process events from a JSON lines or JSON array file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		items, err := readBatchFile(args[0], batchLimit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			zap.L().Info("batch: no events to process")
			return nil
		}

		start := time.Now()
		runID := uuid.NewString()

		workers := cfg.Batch.Workers
		if workers <= 0 {
			workers = 1
		}

		// Each worker owns its own orchestrator so telemetry needs no
		// cross-worker locking; accumulators are merged after the pool drains.
		queue := make(chan batchItem)
		orchestrators := make([]*pipeline.Orchestrator, workers)
		var completed, failed, skipped atomic.Int64

		g, gCtx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			orch := pipeline.NewOrchestrator(env.Doc, env.Provider, nil)
			orchestrators[w] = orch
			g.Go(func() error {
				for item := range queue {
					result, err := orch.RunEnrichment(gCtx, item.Event, item.Venue)
					if err != nil {
						return err
					}

					if _, err := env.Store.SaveEvent(gCtx, store.NewEventRecord(item.Venue, result.Event)); err != nil {
						zap.L().Error("batch: save event failed",
							zap.String("venue", item.Venue),
							zap.String("title", result.Event.Title()),
							zap.Error(err),
						)
					}

					if meta := result.Event.Meta(); meta != nil {
						switch meta.Status {
						case model.StatusCompleted:
							completed.Add(1)
						case model.StatusFailed:
							failed.Add(1)
						case model.StatusSkipped:
							skipped.Add(1)
						}
					}

					if result.FailFast {
						return eris.Errorf("batch: fail-fast validation failure for venue %q event %q: %v",
							item.Venue, result.Event.Title(), result.ValidationErrors)
					}
				}
				return nil
			})
		}

		g.Go(func() error {
			defer close(queue)
			for _, item := range items {
				select {
				case queue <- item:
				case <-gCtx.Done():
					return gCtx.Err()
				}
			}
			return nil
		})

		runErr := g.Wait()

		merged := pipeline.NewTelemetry()
		for _, orch := range orchestrators {
			merged.Merge(orch.Telemetry())
		}
		snap := merged.Snapshot()

		if err := env.Store.SaveTelemetry(ctx, runID, snap); err != nil {
			zap.L().Error("batch: save telemetry failed", zap.Error(err))
		}

		zap.L().Info("batch: run complete",
			zap.String("run_id", runID),
			zap.Int("events", len(items)),
			zap.Int64("completed", completed.Load()),
			zap.Int64("failed", failed.Load()),
			zap.Int64("skipped", skipped.Load()),
			zap.Int("classifications", snap.TotalClassifications),
			zap.Int("abstentions", snap.Abstentions),
			zap.Int("fields_accepted", snap.FieldsAccepted),
			zap.Int("fields_rejected", snap.FieldsRejected),
			zap.Int("enrichment_failures", snap.EnrichmentFailures),
			zap.Duration("elapsed", time.Since(start)),
		)

		return runErr
	},
}

// readBatchFile reads {"venue": ..., "event": {...}} items, either one per
// line or as a single top-level JSON array.
func readBatchFile(path string, limit int) ([]batchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	if trimmed := bytes.TrimLeft(data, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		return readBatchArray(trimmed, limit)
	}
	return readBatchLines(data, limit)
}

func readBatchArray(data []byte, limit int) ([]batchItem, error) {
	var items []batchItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, eris.Wrap(err, "decode array")
	}
	for i, item := range items {
		if item.Venue == "" {
			return nil, eris.Errorf("item %d: venue is required", i+1)
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func readBatchLines(data []byte, limit int) ([]batchItem, error) {
	var items []batchItem
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var item batchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, eris.Wrapf(err, "decode line %d", line)
		}
		if item.Venue == "" {
			return nil, eris.Errorf("line %d: venue is required", line)
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "scan input")
	}
	return items, nil
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of events to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}
