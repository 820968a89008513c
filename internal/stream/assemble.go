package stream

import (
	"regexp"
	"sort"
	"strings"

	"github.com/soren/sotto/internal/stt"
)

// Assembler renders display text from reconciliation state and applies
// the deterministic cleanup pass. Clean is idempotent: cleaning its
// own output changes nothing, so re-rendering is always safe.
type Assembler struct {
	lineBreaks bool
}

// NewAssembler builds an assembler. With lineBreaks, a newline is
// inserted after sentence-terminal punctuation; commas never break.
func NewAssembler(lineBreaks bool) *Assembler {
	return &Assembler{lineBreaks: lineBreaks}
}

var (
	bracketRe = regexp.MustCompile(`\[[^\[\]]*\]`)
	noiseRe   = regexp.MustCompile(`(?i)\((?:music|silence|inaudible|background noise|noise|static|applause|laughter)\)|♪`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	// Sentence-terminal punctuation followed by horizontal space;
	// full-width stops included, comma deliberately not.
	sentenceRe  = regexp.MustCompile(`([.!?。！？])[ \t]+`)
	emptyLineRe = regexp.MustCompile(`[ \t]*\n[ \t\n]*`)
)

// SegmentsText joins confirmed then unconfirmed segment texts, each
// group ordered by start time.
func (a *Assembler) SegmentsText(confirmed, unconfirmed []stt.Segment) string {
	return joinNonEmpty(segmentGroup(confirmed), segmentGroup(unconfirmed))
}

// WordsText joins confirmed then hypothesis words.
func (a *Assembler) WordsText(confirmed, hypothesis []stt.WordTiming) string {
	return joinNonEmpty(wordGroup(confirmed), wordGroup(hypothesis))
}

// Display produces the final text for one snapshot: any carried-over
// text from earlier sessions, then the mode-specific assembly, cleaned.
func (a *Assembler) Display(carry, assembled string) string {
	return a.Clean(joinNonEmpty(carry, assembled))
}

// Clean applies the cleanup pass: bracketed annotations and noise tags
// are stripped, whitespace runs collapse, empty lines are dropped, and
// optionally sentence ends become line breaks.
func (a *Assembler) Clean(text string) string {
	// Annotations can nest and removals can expose new matches; strip
	// until stable.
	for {
		stripped := bracketRe.ReplaceAllString(text, "")
		stripped = noiseRe.ReplaceAllString(stripped, "")
		if stripped == text {
			break
		}
		text = stripped
	}

	text = spaceRe.ReplaceAllString(text, " ")
	text = emptyLineRe.ReplaceAllString(text, "\n")

	if a.lineBreaks {
		text = sentenceRe.ReplaceAllString(text, "$1\n")
	}

	return strings.TrimSpace(text)
}

func segmentGroup(segments []stt.Segment) string {
	ordered := append([]stt.Segment(nil), segments...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	parts := make([]string, 0, len(ordered))
	for _, seg := range ordered {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func wordGroup(words []stt.WordTiming) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.TrimSpace(w.Word); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
