// Package segment persists a built snapshot (inverted index, document vectors
// and a manifest describing the corpus they came from) as JSON files in one
// directory, and reads it back.
package segment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/vector"
)

const (
	IndexFile     = "index.json"
	VectorsFile   = "vectors.json"
	ManifestFile  = "manifest.json"
	FormatVersion = 2
)

// Manifest ties a snapshot to the corpus it was built from and pins the exact
// index and vectors files written with it.
type Manifest struct {
	Version       int       `json:"version"`
	DocCount      int       `json:"doc_count"`
	TermCount     int       `json:"term_count"`
	Fingerprint   string    `json:"fingerprint"`
	IndexSHA256   string    `json:"index_sha256"`
	VectorsSHA256 string    `json:"vectors_sha256"`
	BuiltAt       time.Time `json:"built_at"`
}

// Writer serialises snapshots into a data directory.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes snapshot files into dataDir.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write persists idx and vectors, then the manifest carrying both files'
// checksums. Each file is written to a .tmp sibling and renamed on success.
// The manifest goes last, so a crash mid-write leaves either no manifest or
// one whose checksums reject the mixed pair.
func (w *Writer) Write(idx *index.Index, vectors []vector.Vector, m Manifest) error {
	if len(vectors) != idx.NumDocs() {
		return fmt.Errorf("snapshot has %d vectors for %d documents", len(vectors), idx.NumDocs())
	}
	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	// The old manifest must not vouch for a half-replaced pair.
	if err := os.Remove(filepath.Join(w.dataDir, ManifestFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing old manifest: %w", err)
	}

	indexSum, err := w.writeJSON(IndexFile, idx.Postings())
	if err != nil {
		return err
	}
	byID := make(map[string]vector.Vector, len(vectors))
	for docID, v := range vectors {
		byID[strconv.Itoa(docID)] = v
	}
	vectorsSum, err := w.writeJSON(VectorsFile, byID)
	if err != nil {
		return err
	}

	m.Version = FormatVersion
	m.DocCount = idx.NumDocs()
	m.TermCount = idx.NumTerms()
	m.IndexSHA256 = indexSum
	m.VectorsSHA256 = vectorsSum
	if m.BuiltAt.IsZero() {
		m.BuiltAt = time.Now().UTC()
	}
	_, err = w.writeJSON(ManifestFile, m)
	return err
}

// writeJSON atomically replaces name with the JSON encoding of v and returns
// the hex sha256 of the bytes written.
func (w *Writer) writeJSON(name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing %s: %w", name, err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming %s: %w", name, err)
	}
	return checksum(data), nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
