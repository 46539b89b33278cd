// Package snippet turns raw ranked hits into display-ready fields: a
// readable title, a source label and a short snippet of the best paragraph.
package snippet

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/notes-retrieval/pkg/logger"
)

// MinSummaryLength is the shortest summarizer output accepted before falling
// back to a truncated paragraph.
const MinSummaryLength = 50

// DefaultLength is the fallback truncation length in runes.
const DefaultLength = 280

// Summarizer condenses a paragraph for display. Implementations live outside
// this module; the retrieval core only selects the paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, paragraph, query string) (string, error)
}

// SummarizerFunc adapts a plain function to Summarizer.
type SummarizerFunc func(ctx context.Context, paragraph, query string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, paragraph, query string) (string, error) {
	return f(ctx, paragraph, query)
}

var (
	glyphs     = regexp.MustCompile(`[■□▪▫◼◻▢▣�]`)
	whitespace = regexp.MustCompile(`\s+`)
	chunkPart  = regexp.MustCompile(`_chunk_\d+`)
	hashPrefix = regexp.MustCompile(`^[a-fA-F0-9]{32}_`)
	mitLecture = regexp.MustCompile(`^(MIT)(\d+)[-_](\d+[A-Z]?\d*)[_-](Lec)(\d+)`)
	headings   = []*regexp.Regexp{
		regexp.MustCompile(`(Chapter\s+\d+[:\-\s]+[A-Za-z].+)`),
		regexp.MustCompile(`(Section\s+\d+[:\-\s]+[A-Za-z].+)`),
		regexp.MustCompile(`(\b\d+\.\d+\s+[A-Z][A-Za-z\s]+)`),
		regexp.MustCompile(`(\b\d+\s+[A-Z][A-Za-z\s]+)`),
	}
)

// CleanText drops PDF extraction artifacts and collapses whitespace.
func CleanText(text string) string {
	text = glyphs.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// DisplayTitle derives a human title from a document filename or path.
func DisplayTitle(filename string) string {
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	filename = strings.ReplaceAll(filename, ".txt", "")
	filename = chunkPart.ReplaceAllString(filename, "")
	filename = hashPrefix.ReplaceAllString(filename, "")

	if m := mitLecture.FindStringSubmatch(filename); m != nil {
		return "MIT " + m[2] + " Lecture " + m[5]
	}
	return strings.TrimSpace(strings.ReplaceAll(filename, "_", " "))
}

// ExtractHeading finds a chapter, section or numbered heading inside a
// paragraph. It returns "" when there is none.
func ExtractHeading(paragraph string) string {
	if paragraph == "" {
		return ""
	}
	for _, re := range headings {
		if m := re.FindStringSubmatch(paragraph); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// FullTitle joins the display title and the paragraph heading, if any.
func FullTitle(filename, paragraph string) string {
	title := DisplayTitle(filename)
	if heading := ExtractHeading(paragraph); heading != "" {
		return title + " — " + heading
	}
	return title
}

// SourceLabel classifies where a document came from by its path.
func SourceLabel(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "materials"):
		return "B.Tech CS Materials"
	case strings.Contains(lower, "mit_opencourseware"):
		return "MIT OpenCourseWare"
	case strings.Contains(lower, "openstax"):
		return "OpenStax"
	case strings.Contains(lower, "opentextbook"):
		return "Open Textbook Library"
	default:
		return "General Resource"
	}
}

// Truncate cuts text to at most maxLen runes, backs off to the last space
// and appends "...".
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultLength
	}
	if utf8.RuneCountInString(text) > maxLen {
		text = string([]rune(text)[:maxLen])
	}
	if i := strings.LastIndex(text, " "); i >= 0 {
		text = text[:i]
	}
	return text + "..."
}

// Build produces the display snippet for a paragraph. Summarizer output is
// used when it is at least MinSummaryLength characters; otherwise, or when s
// is nil or fails, the cleaned paragraph is truncated to maxLen.
func Build(ctx context.Context, s Summarizer, paragraph, query string, maxLen int) string {
	raw := CleanText(paragraph)
	var summary string
	if s != nil {
		out, err := s.Summarize(ctx, raw, query)
		if err != nil {
			logger.FromContext(ctx).Warn("summarizer failed, truncating paragraph",
				"component", "snippet",
				"query", query,
				"error", err,
			)
		} else {
			summary = CleanText(out)
		}
	}
	if utf8.RuneCountInString(summary) >= MinSummaryLength {
		return summary
	}
	return Truncate(raw, maxLen)
}
