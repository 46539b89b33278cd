package snippet

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/logger"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello ■ world\n\n again ", "hello world again"},
		{"tabs\tand\r\nnewlines", "tabs and newlines"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"MIT6_006F11_lec01.txt", "MIT6 006F11 lec01"},
		{"MIT6-006-Lec12_chunk_3.txt", "MIT 6 Lecture 12"},
		{"0123456789abcdef0123456789abcdef_Operating_Systems.txt", "Operating Systems"},
		{"data/processed_data/openstax/Computer_Networks_chunk_12.txt", "Computer Networks"},
		{"plain.txt", "plain"},
	}
	for _, tt := range tests {
		if got := DisplayTitle(tt.in); got != tt.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractHeading(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Chapter 3: Memory Management", "Chapter 3: Memory Management"},
		{"see Section 4 - Scheduling policies", "Section 4 - Scheduling policies"},
		{"2.1 Process States", "2.1 Process States"},
		{"no heading here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractHeading(tt.in); got != tt.want {
			t.Errorf("ExtractHeading(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFullTitle(t *testing.T) {
	if got := FullTitle("Networks.txt", "Chapter 2: Routing"); got != "Networks — Chapter 2: Routing" {
		t.Errorf("FullTitle = %q", got)
	}
	if got := FullTitle("Networks.txt", "plain text"); got != "Networks" {
		t.Errorf("FullTitle = %q", got)
	}
}

func TestSourceLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data/reading_materials/os.txt", "B.Tech CS Materials"},
		{"data/MIT_OpenCourseWare/lec.txt", "MIT OpenCourseWare"},
		{"openstax/bio.txt", "OpenStax"},
		{"OpenTextbookLibrary/x.txt", "Open Textbook Library"},
		{"misc/x.txt", "General Resource"},
	}
	for _, tt := range tests {
		if got := SourceLabel(tt.in); got != tt.want {
			t.Errorf("SourceLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("alpha beta gamma", 12); got != "alpha beta..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 100); got != "short..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("ééééé ééééé", 8); got != "ééééé..." {
		t.Errorf("Truncate multibyte = %q", got)
	}
}

func TestBuild(t *testing.T) {
	paragraph := strings.Repeat("word ", 100)
	long := strings.Repeat("summary ", 10)

	tests := []struct {
		name string
		s    Summarizer
		want string
	}{
		{
			name: "summary used",
			s: SummarizerFunc(func(context.Context, string, string) (string, error) {
				return long, nil
			}),
			want: strings.TrimSpace(long),
		},
		{
			name: "short summary falls back",
			s: SummarizerFunc(func(context.Context, string, string) (string, error) {
				return "too short", nil
			}),
			want: Truncate(CleanText(paragraph), 20),
		},
		{
			name: "summarizer error falls back",
			s: SummarizerFunc(func(context.Context, string, string) (string, error) {
				return "", errors.New("down")
			}),
			want: Truncate(CleanText(paragraph), 20),
		},
		{
			name: "no summarizer",
			want: Truncate(CleanText(paragraph), 20),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(context.Background(), tt.s, paragraph, "q", 20); got != tt.want {
				t.Errorf("Build = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildLogsSummarizerFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logger.New(&buf, "info", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := logger.WithRequestID(context.Background(), "req-7")
	failing := SummarizerFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("summarizer unreachable")
	})
	got := Build(ctx, failing, "a paragraph about paging and virtual memory", "paging", 0)
	if !strings.HasPrefix(got, "a paragraph about paging") {
		t.Errorf("Build = %q", got)
	}

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"component":"snippet"`, `"request_id":"req-7"`, "summarizer unreachable"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}
