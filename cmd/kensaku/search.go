package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/output"
	"github.com/hyperjump/kensaku/internal/search"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [flags] <query>",
		Short: "Run one ranked query against the index",
		Long: `Search ranks documents for a query. The query is all remaining arguments
joined by spaces, lowercased and split on whitespace into unit-weight terms.
With --native the argument is read as native query syntax: weighted terms,
quoted phrases, and +/- clauses.`,
		Example: `  kensaku search international organized crime
  kensaku search --model method:bm25,k1:1.2,b:0.75 --limit 100 hubble telescope
  kensaku search --native '+raf cranwell' --output text`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}
	f := cmd.Flags()
	f.Int("limit", 0, "maximum results (0 uses search.default_limit)")
	f.String("model", "", "scoring model spec, e.g. method:dirichlet,mu:2500")
	f.Bool("native", false, "treat the query as native index query syntax")
	f.StringSlice("fields", nil, "fields to match and score (default: all indexed text fields)")
	f.StringSlice("stored", nil, "stored fields to return with each hit")
	f.String("query-id", "1", "query identifier written to the output")
	f.String("run-id", "", "run tag for trec output and the archive (default: output.run_id)")
	f.String("output", "", "output format: trec, json or text (default: output.format)")
	f.Bool("archive", false, "save the result list to the run archive")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	defer sess.Close()

	f := cmd.Flags()
	limit, _ := f.GetInt("limit")
	model, _ := f.GetString("model")
	native, _ := f.GetBool("native")
	fields, _ := f.GetStringSlice("fields")
	stored, _ := f.GetStringSlice("stored")
	queryID, _ := f.GetString("query-id")
	runID, _ := f.GetString("run-id")
	formatName, _ := f.GetString("output")
	archive, _ := f.GetBool("archive")

	if formatName == "" {
		formatName = e.cfg.Output.Format
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if runID == "" {
		runID = e.cfg.Output.RunID
	}
	if runID == "" {
		runID = "kensaku"
	}

	text := strings.Join(args, " ")
	req := &search.Request{
		Limit:        e.cfg.Search.ClampLimit(limit),
		Fields:       fields,
		Model:        model,
		StoredFields: stored,
	}
	q := &models.Query{ID: queryID, Text: text}
	req.Query = q
	if native {
		req.Native = text
	} else if err := q.Validate(); err != nil {
		return err
	}

	start := time.Now()
	hits, err := sess.Engine.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	elapsed := time.Since(start)

	resolved := sess.Engine.DefaultModel()
	if model != "" {
		if resolved, err = sess.Factory.Parse(model); err != nil {
			return err
		}
	}
	if archive {
		a, err := e.openArchive()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.CreateRun(cmd.Context(), runID, resolved.String()); err != nil {
			return err
		}
		if err := a.SaveRun(cmd.Context(), runID, queryID, hits); err != nil {
			return err
		}
		e.logger.Debug("run archived", zap.String("run_id", runID), zap.Int("hits", hits.Len()))
	}

	resp := models.NewSearchResponse(queryID, text, resolved.String(), hits, elapsed)
	return output.WriteSearchResults(cmd.OutOrStdout(), resp, format, runID)
}
