package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/vector"
)

// Reasons a snapshot is rejected.
const (
	ReasonMissing  = "missing"
	ReasonCorrupt  = "corrupt"
	ReasonMismatch = "mismatch"
	ReasonStale    = "stale"
)

// LoadResult is the outcome of reading a snapshot. When Valid is false the
// other fields are unset and Reason/Detail say why; callers rebuild instead
// of failing.
type LoadResult struct {
	Valid    bool
	Reason   string
	Detail   string
	Index    *index.Index
	Vectors  []vector.Vector
	Manifest Manifest
}

func invalid(reason, format string, args ...any) LoadResult {
	return LoadResult{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Expect describes the live corpus a snapshot must match.
type Expect struct {
	DocCount    int
	Fingerprint string
	// VerifyFingerprint rejects snapshots built from different corpus
	// content. The manifest itself is always required.
	VerifyFingerprint bool
}

// Reader loads snapshots from a data directory.
type Reader struct {
	dataDir string
}

func NewReader(dataDir string) *Reader {
	return &Reader{dataDir: dataDir}
}

// Load reads index, vectors and manifest. It never returns an error; any read
// or parse failure, or a snapshot that does not fit exp, is an invalid result.
func (r *Reader) Load(exp Expect) LoadResult {
	var manifest Manifest
	if _, res := r.readJSON(ManifestFile, &manifest); res != nil {
		return *res
	}
	if manifest.Version != FormatVersion {
		return invalid(ReasonStale, "manifest format %d, want %d", manifest.Version, FormatVersion)
	}
	if exp.VerifyFingerprint {
		if manifest.Fingerprint != exp.Fingerprint {
			return invalid(ReasonStale, "corpus fingerprint changed")
		}
		if manifest.DocCount != exp.DocCount {
			return invalid(ReasonStale, "manifest has %d documents, corpus has %d", manifest.DocCount, exp.DocCount)
		}
	}

	var postings map[string]index.PostingList
	indexSum, res := r.readJSON(IndexFile, &postings)
	if res != nil {
		return *res
	}
	var byID map[string]vector.Vector
	vectorsSum, res := r.readJSON(VectorsFile, &byID)
	if res != nil {
		return *res
	}

	if len(byID) != exp.DocCount {
		return invalid(ReasonMismatch, "snapshot has %d vectors, corpus has %d documents", len(byID), exp.DocCount)
	}
	vectors := make([]vector.Vector, exp.DocCount)
	for key, v := range byID {
		docID, err := strconv.Atoi(key)
		if err != nil || docID < 0 || docID >= exp.DocCount {
			return invalid(ReasonCorrupt, "bad document id %q in %s", key, VectorsFile)
		}
		if v == nil {
			v = vector.Vector{}
		}
		vectors[docID] = v
	}
	for term, list := range postings {
		if len(list) == 0 {
			return invalid(ReasonCorrupt, "term %q has no postings", term)
		}
		for _, p := range list {
			if p.DocID < 0 || p.DocID >= exp.DocCount {
				return invalid(ReasonCorrupt, "term %q references document %d", term, p.DocID)
			}
		}
	}

	if indexSum != manifest.IndexSHA256 || vectorsSum != manifest.VectorsSHA256 {
		return invalid(ReasonMismatch, "%s and %s are not the pair recorded in %s", IndexFile, VectorsFile, ManifestFile)
	}

	return LoadResult{
		Valid:    true,
		Index:    index.New(postings, exp.DocCount),
		Vectors:  vectors,
		Manifest: manifest,
	}
}

// readJSON decodes one file and returns the hex sha256 of its bytes. A
// non-nil result means it could not be used.
func (r *Reader) readJSON(name string, v any) (string, *LoadResult) {
	data, err := os.ReadFile(filepath.Join(r.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			out := invalid(ReasonMissing, "%s not found", name)
			return "", &out
		}
		out := invalid(ReasonCorrupt, "reading %s: %v", name, err)
		return "", &out
	}
	if err := json.Unmarshal(data, v); err != nil {
		out := invalid(ReasonCorrupt, "parsing %s: %v", name, err)
		return "", &out
	}
	return checksum(data), nil
}
