package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kensaku/internal/stats"
	"github.com/hyperjump/kensaku/internal/storage"
)

type statsResponse struct {
	Statistics stats.Snapshot `json:"statistics"`
	Model      string         `json:"model"`
	IndexPath  string         `json:"index_path"`
	DiskUsage  *storage.Usage `json:"disk_usage,omitempty"`
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print collection statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	cmd.Flags().StringSlice("fields", nil, "fields to summarize (default: all indexed text fields)")
	cmd.Flags().String("output", "text", "output format: text or json")
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown output format %q; use text or json", format)
	}
	fields, _ := cmd.Flags().GetStringSlice("fields")

	e, sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	defer sess.Close()

	snap, err := sess.Stats.Snapshot(fields...)
	if err != nil {
		return err
	}
	resp := statsResponse{
		Statistics: snap,
		Model:      sess.Engine.DefaultModel().String(),
		IndexPath:  e.cfg.Index.Path,
	}
	if usage, err := storage.MeasureUsage(e.cfg.Index.Path, e.cfg.Archive.DatabasePath); err == nil {
		resp.DiskUsage = &usage
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	writeStatsText(out, resp)
	return nil
}

func writeStatsText(w io.Writer, s statsResponse) {
	fmt.Fprintf(w, "documents:           %d   # count of indexed documents\n", s.Statistics.DocCount)
	fmt.Fprintf(w, "terms:               %d   # total term occurrences\n", s.Statistics.TermCount)
	fmt.Fprintf(w, "vocabulary:          %d   # distinct terms\n", s.Statistics.VocabularySize)
	fmt.Fprintf(w, "average_doc_length:  %.4f\n", s.Statistics.AverageDocLength)
	fmt.Fprintf(w, "fields:              %s\n", strings.Join(s.Statistics.Fields, ", "))
	if s.DiskUsage != nil {
		fmt.Fprintf(w, "index_bytes:         %d\n", s.DiskUsage.IndexBytes)
		if s.DiskUsage.ArchiveBytes > 0 {
			fmt.Fprintf(w, "archive_bytes:       %d\n", s.DiskUsage.ArchiveBytes)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "index_path:          %s\n", s.IndexPath)
	fmt.Fprintf(w, "model:               %s\n", s.Model)
}
