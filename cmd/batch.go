package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/profile-cli/internal/extraction"
)

var (
	batchLimit  int
	batchEnrich bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Extract and merge every document in a directory",
	Long:  "Each supported document in the directory is one subject, named after the file without its extension. Drafts are merged into the stored profiles; --enrich also runs enrichment afterwards.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		text := newTextService(cfg)
		items, err := collectBatch(args[0], text.Supported)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		extractor := newExtractor(cfg, text)
		orch, err := newOrchestrator(cfg, nil)
		if err != nil {
			return err
		}

		return processBatch(ctx, items, batchLimit, cfg.Batch.MaxConcurrentSubjects, func(ctx context.Context, item batchItem) error {
			data, err := os.ReadFile(item.Path)
			if err != nil {
				return eris.Wrap(err, "read document")
			}
			jobCtx, cancel := context.WithTimeout(ctx, seconds(cfg.Extraction.JobTimeoutSecs))
			defer cancel()

			res, err := extractor.Extract(jobCtx, extraction.File{Name: filepath.Base(item.Path), Data: data})
			if err != nil {
				return err
			}
			if _, err := mergeIntoSubject(ctx, st, item.SubjectID, res); err != nil {
				return err
			}
			if !batchEnrich {
				return nil
			}
			_, err = enrichSubject(ctx, st, orch, item.SubjectID)
			return err
		})
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of documents to process")
	batchCmd.Flags().BoolVar(&batchEnrich, "enrich", false, "run enrichment after merging each subject")
	rootCmd.AddCommand(batchCmd)
}

// batchItem is one document and the subject it belongs to.
type batchItem struct {
	SubjectID string
	Path      string
}

// collectBatch lists supported documents in dir, sorted by name.
func collectBatch(dir string, supported func(name string) bool) ([]batchItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "read batch directory")
	}

	var items []batchItem
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		name := e.Name()
		items = append(items, batchItem{
			SubjectID: strings.TrimSuffix(name, filepath.Ext(name)),
			Path:      filepath.Join(dir, name),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

// processFunc handles a single batch item.
type processFunc func(ctx context.Context, item batchItem) error

// processBatch applies limit, then processes items concurrently. A failed
// item is logged and counted; it does not stop the others.
func processBatch(ctx context.Context, items []batchItem, limit, concurrency int, process processFunc) error {
	if len(items) == 0 {
		zap.L().Info("no documents found")
		return nil
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("documents", len(items)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	start := time.Now()

	for _, item := range items {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := process(gctx, item); err != nil {
				failed.Add(1)
				zap.L().Error("batch item failed",
					zap.String("subject", item.SubjectID),
					zap.String("path", item.Path),
					zap.Error(err),
				)
				return nil
			}
			succeeded.Add(1)
			zap.L().Info("batch item complete", zap.String("subject", item.SubjectID))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if ctx.Err() != nil {
		return eris.Wrap(ctx.Err(), "batch interrupted")
	}
	return nil
}
