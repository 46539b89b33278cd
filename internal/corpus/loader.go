package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Entry is a (filename, text) pair supplied by a Loader.
type Entry struct {
	Filename string
	Text     string
}

// Loader supplies every document to index.
type Loader interface {
	Load(ctx context.Context) ([]Entry, error)
}

// StaticLoader serves a fixed set of entries. Useful for tests and for
// callers that already hold the text in memory.
type StaticLoader []Entry

func (s StaticLoader) Load(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, len(s))
	copy(out, s)
	return out, nil
}

// DirLoader reads processed text files from a single directory. Files are
// returned sorted by name so document ids stay stable across restarts.
type DirLoader struct {
	Dir        string
	Extensions []string
	logger     *slog.Logger
}

func NewDirLoader(dir string, extensions []string) *DirLoader {
	if len(extensions) == 0 {
		extensions = []string{".txt"}
	}
	return &DirLoader{
		Dir:        dir,
		Extensions: extensions,
		logger:     slog.Default().With("component", "corpus-loader"),
	}
}

// Load returns an empty slice, not an error, when the directory is missing:
// an absent corpus is a normal EMPTY engine.
func (l *DirLoader) Load(ctx context.Context) ([]Entry, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("corpus directory does not exist", "dir", l.Dir)
			return nil, nil
		}
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !l.accepts(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading corpus: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err != nil {
			l.logger.Error("failed to read document, skipping", "file", name, "error", err)
			continue
		}
		if !utf8.Valid(data) {
			l.logger.Warn("document is not valid utf-8, replacing invalid bytes", "file", name)
			data = []byte(strings.ToValidUTF8(string(data), "�"))
		}
		out = append(out, Entry{Filename: name, Text: string(data)})
	}
	l.logger.Info("corpus loaded", "dir", l.Dir, "documents", len(out))
	return out, nil
}

func (l *DirLoader) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range l.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
