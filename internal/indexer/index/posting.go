package index

import (
	"encoding/json"
	"fmt"
)

// Posting records how often a term occurs in one document. A term has at most
// one Posting per document and Frequency is always >= 1.
type Posting struct {
	DocID     int
	Frequency int
}

// MarshalJSON encodes a posting as the pair [doc_id, frequency].
func (p Posting) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.DocID, p.Frequency})
}

func (p *Posting) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("posting must be [doc_id, frequency], got %d values", len(pair))
	}
	if pair[1] < 1 {
		return fmt.Errorf("posting for doc %d has frequency %d", pair[0], pair[1])
	}
	p.DocID, p.Frequency = pair[0], pair[1]
	return nil
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

// TermEntry pairs a term with its postings, used when walking the index in
// term order.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// TermFreqs is the per-document term -> frequency map kept from the indexing
// pass so vector construction never re-scans posting lists.
type TermFreqs map[string]int
