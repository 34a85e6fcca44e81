// Package output writes ranked results as TREC run files and CLI output.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/hyperjump/kensaku/internal/models"
)

// TrecWriter writes result lists in trec_eval run format:
//
//	queryId Q0 docno rank score runId
//
// It is safe for concurrent use; each Write call emits its lines contiguously.
type TrecWriter struct {
	mu    sync.Mutex
	w     *bufio.Writer
	c     io.Closer
	runID string
}

// NewTrecWriter writes to w. If w is an io.Closer other than standard output
// or standard error, Close closes it.
func NewTrecWriter(w io.Writer, runID string) *TrecWriter {
	tw := &TrecWriter{w: bufio.NewWriter(w), runID: runID}
	if w == io.Writer(os.Stdout) || w == io.Writer(os.Stderr) {
		return tw
	}
	if c, ok := w.(io.Closer); ok {
		tw.c = c
	}
	return tw
}

// Create creates or truncates the file at path and writes to it.
func Create(path, runID string) (*TrecWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create run file: %w", err)
	}
	return NewTrecWriter(f, runID), nil
}

// RunID returns the run tag written on each line.
func (t *TrecWriter) RunID() string { return t.runID }

// Write emits one line per hit in list order and flushes. Hits whose docno is
// shorter than two characters are skipped without taking a rank. A line that
// would contain two consecutive spaces is dropped after its rank is assigned.
func (t *TrecWriter) Write(hits *models.SearchHits, queryID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rank := 1
	for _, hit := range hits.Hits() {
		if len(hit.Docno) < 2 {
			continue
		}
		line := queryID + " Q0 " + hit.Docno + " " + strconv.Itoa(rank) + " " +
			strconv.FormatFloat(hit.Score, 'f', -1, 64) + " " + t.runID
		rank++
		if strings.Contains(line, "  ") {
			continue
		}
		if _, err := t.w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("failed to write run line: %w", err)
		}
	}
	return t.flush()
}

// Flush writes buffered lines to the destination.
func (t *TrecWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flush()
}

func (t *TrecWriter) flush() error {
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush run file: %w", err)
	}
	return nil
}

// Close flushes and closes the destination when it is closable.
func (t *TrecWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.flush()
	if t.c != nil {
		if cerr := t.c.Close(); cerr != nil && err == nil {
			err = cerr
		}
		t.c = nil
	}
	return err
}
