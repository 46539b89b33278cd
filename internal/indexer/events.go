package indexer

import "time"

// CorpusChangedEvent is published by whatever maintains the processed text
// directory when files are added, replaced or removed.
type CorpusChangedEvent struct {
	Reason    string    `json:"reason,omitempty"`
	Files     []string  `json:"files,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexCompleteEvent announces a freshly built snapshot.
type IndexCompleteEvent struct {
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Fingerprint string    `json:"fingerprint"`
	Generation  uint64    `json:"generation,omitempty"`
	Source      string    `json:"source"`
	BuiltAt     time.Time `json:"built_at"`
}

// CompleteEvent describes snap for the index-complete topic.
func CompleteEvent(snap *Snapshot) IndexCompleteEvent {
	return IndexCompleteEvent{
		Documents:   snap.Corpus.Len(),
		Terms:       snap.Index.NumTerms(),
		Fingerprint: snap.Fingerprint,
		Generation:  snap.Generation,
		Source:      snap.Source,
		BuiltAt:     snap.BuiltAt,
	}
}
