package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/kafka"
)

type recordingPublisher struct {
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e kafka.Event) error {
	p.events = append(p.events, e)
	return nil
}

type failingRebuilder struct{ err error }

func (f failingRebuilder) Rebuild(context.Context) (*indexer.Snapshot, error) { return nil, f.err }

func TestHandleMessageRebuilds(t *testing.T) {
	engine := indexer.NewEngine(corpus.StaticLoader{
		{Filename: "a.txt", Text: "virtual memory paging"},
	}, indexer.Options{})
	pub := &recordingPublisher{}
	handler := HandleMessage(engine, pub)

	value, _ := json.Marshal(indexer.CorpusChangedEvent{Reason: "upload", Files: []string{"a.txt"}, Timestamp: time.Now()})
	if err := handler(context.Background(), []byte("k"), value); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if engine.State() != indexer.StateReady {
		t.Errorf("state = %v, want ready", engine.State())
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events", len(pub.events))
	}
	complete, ok := pub.events[0].Value.(indexer.IndexCompleteEvent)
	if !ok || complete.Documents != 1 || complete.Fingerprint == "" {
		t.Errorf("event = %+v", pub.events[0].Value)
	}
}

func TestHandleMessageDropsBadPayload(t *testing.T) {
	handler := HandleMessage(failingRebuilder{err: errors.New("unreachable")}, nil)
	if err := handler(context.Background(), nil, []byte("{not json")); err != nil {
		t.Errorf("bad payload should be dropped, got %v", err)
	}
}

func TestHandleMessageReportsRebuildFailure(t *testing.T) {
	boom := errors.New("boom")
	handler := HandleMessage(failingRebuilder{err: boom}, nil)
	if err := handler(context.Background(), nil, []byte(`{"reason":"x"}`)); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
