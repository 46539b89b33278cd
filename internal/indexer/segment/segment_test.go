package segment

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer/vector"
)

func buildSnapshot(t *testing.T) (*corpus.Corpus, *index.Index, []vector.Vector) {
	t.Helper()
	c := corpus.New([]corpus.Entry{
		{Filename: "a.txt", Text: "the cat sat"},
		{Filename: "b.txt", Text: "the dog ran"},
		{Filename: "c.txt", Text: "cat and dog play"},
	})
	idx, err := index.Build(context.Background(), c.Documents(), 1)
	if err != nil {
		t.Fatal(err)
	}
	return c, idx, vector.Build(idx)
}

func expectFor(c *corpus.Corpus) Expect {
	return Expect{DocCount: c.Len(), Fingerprint: c.Fingerprint(), VerifyFingerprint: true}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, idx, vectors := buildSnapshot(t)
	if err := NewWriter(dir).Write(idx, vectors, Manifest{Fingerprint: c.Fingerprint()}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res := NewReader(dir).Load(expectFor(c))
	if !res.Valid {
		t.Fatalf("Load invalid: %s %s", res.Reason, res.Detail)
	}
	if !reflect.DeepEqual(res.Index.Entries(), idx.Entries()) {
		t.Error("postings differ after round trip")
	}
	for docID, want := range vectors {
		got := res.Vectors[docID]
		if len(got) != len(want) {
			t.Fatalf("doc %d: %d terms, want %d", docID, len(got), len(want))
		}
		for term, w := range want {
			if math.Abs(got[term]-w) > 1e-12 {
				t.Errorf("doc %d term %q: %v, want %v", docID, term, got[term], w)
			}
		}
	}
	if res.Manifest.DocCount != 3 || res.Manifest.Version != FormatVersion || res.Manifest.BuiltAt.IsZero() {
		t.Errorf("manifest = %+v", res.Manifest)
	}
	for _, name := range []string{IndexFile, VectorsFile, ManifestFile} {
		if _, err := os.Stat(filepath.Join(dir, name+".tmp")); !os.IsNotExist(err) {
			t.Errorf("%s.tmp left behind", name)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	c, _, _ := buildSnapshot(t)
	res := NewReader(t.TempDir()).Load(expectFor(c))
	if res.Valid || res.Reason != ReasonMissing {
		t.Errorf("got %+v, want missing", res)
	}
}

func TestLoadRejectsHalfPair(t *testing.T) {
	for _, name := range []string{IndexFile, VectorsFile} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			c, idx, vectors := buildSnapshot(t)
			if err := NewWriter(dir).Write(idx, vectors, Manifest{Fingerprint: c.Fingerprint()}); err != nil {
				t.Fatal(err)
			}
			os.Remove(filepath.Join(dir, name))
			exp := expectFor(c)
			exp.VerifyFingerprint = false
			if res := NewReader(dir).Load(exp); res.Valid {
				t.Error("expected invalid snapshot")
			}
		})
	}
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"index not json", IndexFile, "{not json"},
		{"vectors not json", VectorsFile, "[1,2"},
		{"posting wrong arity", IndexFile, `{"cat":[[0,1,2]]}`},
		{"posting out of range", IndexFile, `{"cat":[[7,1]]}`},
		{"vector bad id", VectorsFile, `{"0":{},"1":{},"x":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			c, idx, vectors := buildSnapshot(t)
			if err := NewWriter(dir).Write(idx, vectors, Manifest{Fingerprint: c.Fingerprint()}); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, tt.file), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			res := NewReader(dir).Load(expectFor(c))
			if res.Valid {
				t.Fatal("expected invalid snapshot")
			}
			if res.Reason != ReasonCorrupt {
				t.Errorf("reason = %q, want %q", res.Reason, ReasonCorrupt)
			}
		})
	}
}

func TestLoadStale(t *testing.T) {
	dir := t.TempDir()
	c, idx, vectors := buildSnapshot(t)
	if err := NewWriter(dir).Write(idx, vectors, Manifest{Fingerprint: c.Fingerprint()}); err != nil {
		t.Fatal(err)
	}
	changed := corpus.New([]corpus.Entry{
		{Filename: "a.txt", Text: "the cat sat down"},
		{Filename: "b.txt", Text: "the dog ran"},
		{Filename: "c.txt", Text: "cat and dog play"},
	})

	res := NewReader(dir).Load(expectFor(changed))
	if res.Valid || res.Reason != ReasonStale {
		t.Errorf("got %+v, want stale", res)
	}

	exp := expectFor(changed)
	exp.VerifyFingerprint = false
	if res := NewReader(dir).Load(exp); !res.Valid {
		t.Errorf("unverified load rejected: %s", res.Detail)
	}
}

func TestLoadDocCountMismatch(t *testing.T) {
	dir := t.TempDir()
	c, idx, vectors := buildSnapshot(t)
	if err := NewWriter(dir).Write(idx, vectors, Manifest{Fingerprint: c.Fingerprint()}); err != nil {
		t.Fatal(err)
	}
	res := NewReader(dir).Load(Expect{DocCount: 5})
	if res.Valid || res.Reason != ReasonMismatch {
		t.Errorf("got %+v, want mismatch", res)
	}
}

func TestLoadWithoutManifest(t *testing.T) {
	for _, verify := range []bool{true, false} {
		dir := t.TempDir()
		c, idx, vectors := buildSnapshot(t)
		if err := NewWriter(dir).Write(idx, vectors, Manifest{}); err != nil {
			t.Fatal(err)
		}
		os.Remove(filepath.Join(dir, ManifestFile))

		exp := expectFor(c)
		exp.VerifyFingerprint = verify
		if res := NewReader(dir).Load(exp); res.Valid || res.Reason != ReasonMissing {
			t.Errorf("verify=%v: got %+v, want missing", verify, res)
		}
	}
}

// A crash between the index and vectors renames leaves the new index next to
// the old vectors. The manifest checksums must reject that pair.
func TestLoadRejectsHalfReplacedPair(t *testing.T) {
	dir := t.TempDir()
	c, idx, vectors := buildSnapshot(t)
	if err := NewWriter(dir).Write(idx, vectors, Manifest{Fingerprint: c.Fingerprint()}); err != nil {
		t.Fatal(err)
	}

	other := corpus.New([]corpus.Entry{
		{Filename: "a.txt", Text: "zebra zebra"},
		{Filename: "b.txt", Text: "giraffe"},
		{Filename: "c.txt", Text: "zebra giraffe"},
	})
	otherIdx, err := index.Build(context.Background(), other.Documents(), 1)
	if err != nil {
		t.Fatal(err)
	}
	otherDir := t.TempDir()
	if err := NewWriter(otherDir).Write(otherIdx, vector.Build(otherIdx), Manifest{}); err != nil {
		t.Fatal(err)
	}
	newIndex, err := os.ReadFile(filepath.Join(otherDir, IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, IndexFile), newIndex, 0644); err != nil {
		t.Fatal(err)
	}

	for _, verify := range []bool{true, false} {
		exp := expectFor(c)
		exp.VerifyFingerprint = verify
		if res := NewReader(dir).Load(exp); res.Valid || res.Reason != ReasonMismatch {
			t.Errorf("verify=%v: got valid=%v reason=%q, want mismatch", verify, res.Valid, res.Reason)
		}
	}
}

func TestLoadRejectsOldFormat(t *testing.T) {
	dir := t.TempDir()
	c, idx, vectors := buildSnapshot(t)
	if err := NewWriter(dir).Write(idx, vectors, Manifest{Fingerprint: c.Fingerprint()}); err != nil {
		t.Fatal(err)
	}
	legacy := `{"version":1,"doc_count":3,"fingerprint":"` + c.Fingerprint() + `"}`
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}
	if res := NewReader(dir).Load(expectFor(c)); res.Valid || res.Reason != ReasonStale {
		t.Errorf("got %+v, want stale", res)
	}
}

func TestWriteRejectsMismatchedPair(t *testing.T) {
	_, idx, vectors := buildSnapshot(t)
	if err := NewWriter(t.TempDir()).Write(idx, vectors[:1], Manifest{}); err == nil {
		t.Fatal("expected error")
	}
}
