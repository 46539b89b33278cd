// Package corpus holds the ordered, immutable set of plain-text documents the
// engine indexes, and the loaders that produce it.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"path/filepath"
	"strings"
)

// Document is one loaded text. ID is its position in the Corpus.
type Document struct {
	ID       int
	Filename string
	Text     string
}

// Corpus is an ordered sequence of documents. It is never mutated after
// construction; a rebuild replaces it wholesale.
type Corpus struct {
	docs       []Document
	byFilename map[string]int
}

// New assigns ids 0..n-1 in input order. Later duplicates of a filename
// shadow earlier ones for Lookup but keep their own ids.
func New(entries []Entry) *Corpus {
	c := &Corpus{
		docs:       make([]Document, len(entries)),
		byFilename: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		c.docs[i] = Document{ID: i, Filename: e.Filename, Text: e.Text}
		c.byFilename[e.Filename] = i
	}
	return c
}

// Len returns N, the number of documents.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

// Doc returns the document with the given id.
func (c *Corpus) Doc(id int) (Document, bool) {
	if c == nil || id < 0 || id >= len(c.docs) {
		return Document{}, false
	}
	return c.docs[id], true
}

// Documents returns the documents in id order. Callers must not modify it.
func (c *Corpus) Documents() []Document {
	if c == nil {
		return nil
	}
	return c.docs
}

// Lookup finds a document by filename. A path whose final element matches a
// loaded filename is accepted too, since presentation layers often echo the
// full path back.
func (c *Corpus) Lookup(filename string) (Document, bool) {
	if c == nil || filename == "" {
		return Document{}, false
	}
	if id, ok := c.byFilename[filename]; ok {
		return c.docs[id], true
	}
	base := path.Base(filepath.ToSlash(filename))
	if id, ok := c.byFilename[base]; ok {
		return c.docs[id], true
	}
	if !strings.Contains(base, ".") {
		if id, ok := c.byFilename[base+".txt"]; ok {
			return c.docs[id], true
		}
	}
	return Document{}, false
}

// Fingerprint is a sha256 over every (filename, text) pair in id order. Two
// corpora with the same fingerprint index identically.
func (c *Corpus) Fingerprint() string {
	h := sha256.New()
	for _, d := range c.Documents() {
		h.Write([]byte(d.Filename))
		h.Write([]byte{0})
		h.Write([]byte(d.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
