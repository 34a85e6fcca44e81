package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// Format is the format for search result output.
type Format string

const (
	// FormatTrec is trec_eval run format (default).
	FormatTrec Format = "trec"
	// FormatJSON is structured JSON for machine consumption.
	FormatJSON Format = "json"
	// FormatText is human-readable text.
	FormatText Format = "text"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTrec, FormatJSON, FormatText:
		return f, nil
	case "":
		return FormatTrec, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// WriteSearchResults writes resp to w in the given format. runID tags trec lines.
func WriteSearchResults(w io.Writer, resp *models.SearchResponse, format Format, runID string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case FormatText:
		writeSearchResultsText(w, resp)
		return nil
	default:
		hits := models.NewSearchHits()
		for _, h := range resp.Hits {
			hits.Add(h)
		}
		tw := NewTrecWriter(w, runID)
		return tw.Write(hits, resp.QueryID)
	}
}

func writeSearchResultsText(w io.Writer, resp *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms (%s)\n\n", resp.Total, resp.QueryTime, resp.Model)
	for i, hit := range resp.Hits {
		fmt.Fprintf(w, "%4d  %-24s %12.6f", i+1, hit.Docno, hit.Score)
		if hit.HasLength {
			fmt.Fprintf(w, "  len=%s", formatNumber(hit.Length))
		}
		for _, k := range sortedKeys(hit.Metadata) {
			fmt.Fprintf(w, "  %s=%s", k, formatNumber(hit.Metadata[k]))
		}
		fmt.Fprintln(w)
		for _, k := range sortedStringKeys(hit.Fields) {
			fmt.Fprintf(w, "      %s: %s\n", k, utils.Truncate(hit.Fields[k], 200))
		}
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
