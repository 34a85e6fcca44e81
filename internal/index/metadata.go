package index

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MetadataFile is the name of the sidecar file written next to the index.
const MetadataFile = "index.metadata"

// Sidecar keys.
const (
	MetaAnalyzer   = "analyzer"
	MetaSimilarity = "similarity"
)

// Metadata holds the key=value pairs of the sidecar file.
type Metadata map[string]string

// Get returns the value for key and whether it is present.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ReadMetadata reads dir/index.metadata. A missing file yields empty metadata.
// Lines without exactly one '=' are skipped.
func ReadMetadata(dir string) (Metadata, error) {
	md := make(Metadata)
	f, err := os.Open(filepath.Join(dir, MetadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return md, nil
		}
		return nil, fmt.Errorf("open index metadata: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			continue
		}
		md[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read index metadata: %w", err)
	}
	return md, nil
}

// WriteMetadata writes md to dir/index.metadata with keys in the given order.
func WriteMetadata(dir string, md Metadata, keys ...string) error {
	var b strings.Builder
	for _, k := range keys {
		if v, ok := md[k]; ok {
			fmt.Fprintf(&b, "%s=%s\n", k, v)
		}
	}
	return os.WriteFile(filepath.Join(dir, MetadataFile), []byte(b.String()), 0o644)
}
