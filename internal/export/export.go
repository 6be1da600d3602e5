// Package export writes collected players to delimited files.
//
// The file layout is one player per line: the player key followed by the
// eight stored fields, comma separated, without a header and without
// quoting. Keys and fields never contain commas because they are stripped
// during extraction.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/boardcrawl/internal/model"
)

// FileName returns the export file name for a run finished at t by the
// process pid.
func FileName(t time.Time, pid int) string {
	return fmt.Sprintf("output-%d-%d.csv", t.Unix(), pid)
}

// WriteCSV writes players to w sorted by key and returns the number of
// lines written.
func WriteCSV(w io.Writer, players map[string]model.PlayerRecord) (int, error) {
	keys := make([]string, 0, len(players))
	for k := range players {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bw := bufio.NewWriter(w)
	for _, k := range keys {
		if _, err := bw.WriteString(strings.Join(players[k].Columns(), ",")); err != nil {
			return 0, fmt.Errorf("failed to write player %q: %w", k, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return 0, fmt.Errorf("failed to write player %q: %w", k, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(keys), nil
}

// WriteFile writes players to a new file named FileName(time.Now(), pid)
// in dir and returns its path.
func WriteFile(dir string, players map[string]model.PlayerRecord) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(time.Now(), os.Getpid()))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	if _, err := WriteCSV(f, players); err != nil {
		_ = f.Close()
		return path, err
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("failed to close export file: %w", err)
	}
	return path, nil
}
