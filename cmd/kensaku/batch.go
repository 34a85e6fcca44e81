package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/output"
	"github.com/hyperjump/kensaku/internal/storage"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [flags] <query-file>",
		Short: "Run a query file and write a trec_eval run",
		Long: `Batch runs every query in a query file and writes the ranked lists in
trec_eval run format, in query file order.

A .json query file holds an array of {"id", "text", "terms"} objects, where
terms maps a term to its weight. Any other file holds one query per line: an
id, whitespace, then the query text. Blank lines and lines starting with #
are ignored.`,
		Example: `  kensaku batch topics.301-350.txt --out dirichlet.run
  kensaku batch topics.json --model method:bm25 --run-id bm25 --archive`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}
	f := cmd.Flags()
	f.String("out", "", "run file to write (default: stdout)")
	f.Int("limit", 0, "maximum results per query (0 uses search.default_limit)")
	f.String("model", "", "scoring model spec (default: index or config model)")
	f.String("run-id", "", "run tag (default: output.run_id, else a generated id)")
	f.Int("parallelism", 0, "queries in flight (0 uses search.parallelism)")
	f.Bool("archive", false, "save every result list to the run archive")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	queries, err := models.LoadQueries(args[0])
	if err != nil {
		return err
	}
	e, sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	defer sess.Close()

	f := cmd.Flags()
	outPath, _ := f.GetString("out")
	limit, _ := f.GetInt("limit")
	model, _ := f.GetString("model")
	runID, _ := f.GetString("run-id")
	parallelism, _ := f.GetInt("parallelism")
	archive, _ := f.GetBool("archive")

	if runID == "" {
		runID = e.cfg.Output.RunID
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	if parallelism <= 0 {
		parallelism = e.cfg.Search.Parallelism
	}
	resolved := sess.Engine.DefaultModel()
	if model != "" {
		if resolved, err = sess.Factory.Parse(model); err != nil {
			return err
		}
	}

	var w *output.TrecWriter
	if outPath != "" {
		if w, err = output.Create(outPath, runID); err != nil {
			return err
		}
	} else {
		w = output.NewTrecWriter(cmd.OutOrStdout(), runID)
	}
	defer w.Close()

	start := time.Now()
	results, err := sess.Engine.RunBatch(cmd.Context(), queries, e.cfg.Search.ClampLimit(limit), model, parallelism)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	var a storage.Archive
	if archive {
		sa, err := e.openArchive()
		if err != nil {
			return err
		}
		defer sa.Close()
		if err := sa.CreateRun(cmd.Context(), runID, resolved.String()); err != nil {
			return err
		}
		a = sa
	}

	total := 0
	for _, r := range results {
		if err := w.Write(r.Hits, r.Query.ID); err != nil {
			return err
		}
		if a != nil {
			if err := a.SaveRun(cmd.Context(), runID, r.Query.ID, r.Hits); err != nil {
				return err
			}
		}
		total += r.Hits.Len()
	}
	if err := w.Close(); err != nil {
		return err
	}
	e.logger.Info("batch complete",
		zap.String("run_id", runID),
		zap.String("model", resolved.String()),
		zap.Int("queries", len(queries)),
		zap.Int("hits", total),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
