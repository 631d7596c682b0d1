// Package sanitize performs reversible redaction. Classifiers (the PII
// Sweep detect endpoint, or anything else implementing Classifier) report
// sensitive spans; each distinct value is replaced with a stable placeholder
// token and the mapping is kept so the originals can be restored later.
//
// Usage:
//
//	s := sanitize.New(logger, piiclassifier.New(client))
//	redacted, tm, err := s.Redact(ctx, text)
//	// hand redacted text to a third party
//	reply = tm.Restore(reply)
package sanitize

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// globalCounter generates unique token IDs across all redactions in the process.
var globalCounter atomic.Uint64

// TokenMap holds the bidirectional mapping for one redaction.
// It is safe to read from multiple goroutines once Redact has returned.
type TokenMap struct {
	toToken   map[string]string // original value → «LABEL_XXXXXX»
	fromToken map[string]string // «LABEL_XXXXXX» → original value
}

func newTokenMap() *TokenMap {
	return &TokenMap{
		toToken:   make(map[string]string),
		fromToken: make(map[string]string),
	}
}

// register records a mapping and returns the placeholder token.
// If the original was already registered, the existing token is returned.
func (m *TokenMap) register(original, label string) string {
	if tok, ok := m.toToken[original]; ok {
		return tok
	}
	id := globalCounter.Add(1)
	tok := fmt.Sprintf("«%s_%06d»", tokenLabel(label), id)
	m.toToken[original] = tok
	m.fromToken[tok] = original
	return tok
}

// tokenLabel normalizes a span label to [A-Z_]+ so tokens stay matchable.
func tokenLabel(label string) string {
	label = strings.ToUpper(label)
	label = strings.Trim(nonLabelRe.ReplaceAllString(label, "_"), "_")
	if label == "" {
		return "PII"
	}
	return label
}

var nonLabelRe = regexp.MustCompile(`[^A-Z_]+`)

// Restore replaces all placeholder tokens in text with their original values.
func (m *TokenMap) Restore(text string) string {
	if m == nil {
		return text
	}
	for tok, orig := range m.fromToken {
		text = strings.ReplaceAll(text, tok, orig)
	}
	return text
}

// IsEmpty reports whether no replacements were recorded.
func (m *TokenMap) IsEmpty() bool {
	return m == nil || len(m.toToken) == 0
}

// Count returns the number of distinct values that were redacted.
func (m *TokenMap) Count() int {
	if m == nil {
		return 0
	}
	return len(m.toToken)
}

// Redaction describes a single redacted value.
type Redaction struct {
	Token    string `json:"token"`    // e.g. «EMAIL_000001»
	Original string `json:"original"` // the actual sensitive value
}

// Redactions returns all recorded replacements, ordered by token name.
func (m *TokenMap) Redactions() []Redaction {
	if m == nil {
		return nil
	}
	out := make([]Redaction, 0, len(m.fromToken))
	for tok, orig := range m.fromToken {
		out = append(out, Redaction{Token: tok, Original: orig})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// tokenPlaceholderRe matches our own «LABEL_XXXXXX» markers so we never
// re-redact an already-replaced placeholder.
var tokenPlaceholderRe = regexp.MustCompile(`«[A-Z_]+_\d+»`)

// Sanitizer is created once and shared; it holds no per-request state.
type Sanitizer struct {
	classifiers []Classifier
	logger      *slog.Logger
}

// New creates a Sanitizer that runs the given classifiers.
func New(logger *slog.Logger, classifiers ...Classifier) *Sanitizer {
	return &Sanitizer{
		classifiers: classifiers,
		logger:      logger.With("area", "sanitize"),
	}
}

// runClassifiers runs all Classify calls concurrently and merges results.
// The first error cancels the remaining classifiers.
func (s *Sanitizer) runClassifiers(ctx context.Context, text string) ([]Span, error) {
	if len(s.classifiers) == 0 {
		return nil, nil
	}

	results := make([][]Span, len(s.classifiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, clf := range s.classifiers {
		g.Go(func() error {
			spans, err := clf.Classify(gctx, text)
			if err != nil {
				return err
			}
			results[i] = spans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Span
	for _, spans := range results {
		all = append(all, spans...)
	}
	return all, nil
}

// Redact runs every classifier on text and replaces detected spans with
// placeholder tokens. If any classifier fails, no partially redacted text is
// returned.
func (s *Sanitizer) Redact(ctx context.Context, text string) (string, *TokenMap, error) {
	tm := newTokenMap()

	allSpans, err := s.runClassifiers(ctx, text)
	if err != nil {
		return "", nil, fmt.Errorf("sanitize: classify: %w", err)
	}
	if len(allSpans) == 0 {
		return text, tm, nil
	}

	allSpans = validSpans(text, allSpans)
	sortSpansDesc(allSpans)
	allSpans = deduplicateSpans(allSpans)

	out := text
	for _, sp := range allSpans {
		tok := tm.register(out[sp.Start:sp.End], sp.Label)
		s.logger.Debug("redacted", "label", sp.Label, "token", tok)
		out = out[:sp.Start] + tok + out[sp.End:]
	}
	return out, tm, nil
}

// wordBoundaryBytes are bytes that delimit tokens/words.
var wordBoundaryBytes = func() [256]bool {
	var t [256]bool
	for _, b := range []byte(" \t\n\r<>(),;:.!?[]{}\"'`") {
		t[b] = true
	}
	return t
}()

// IsWordBoundaryByte reports whether b separates words.
func IsWordBoundaryByte(b byte) bool { return wordBoundaryBytes[b] }

// validSpans filters out spans with invalid offsets, placeholder tokens,
// or spans that land in the middle of a larger word.
func validSpans(text string, spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	for _, sp := range spans {
		if sp.Start < 0 || sp.End > len(text) || sp.Start >= sp.End {
			continue
		}
		if !isRuneBoundary(text, sp.Start) || !isRuneBoundary(text, sp.End) {
			continue
		}
		if tokenPlaceholderRe.MatchString(text[sp.Start:sp.End]) {
			continue
		}
		if sp.Start > 0 && !IsWordBoundaryByte(text[sp.Start-1]) {
			continue
		}
		if sp.End < len(text) && !IsWordBoundaryByte(text[sp.End]) {
			continue
		}
		out = append(out, sp)
	}
	return out
}

// deduplicateSpans removes overlapping spans (assumes sorted descending by Start).
// Among spans sharing a start, the longest sorts first and wins.
func deduplicateSpans(spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	lastStart := -1
	for _, sp := range spans {
		if lastStart == -1 || sp.End <= lastStart {
			out = append(out, sp)
			lastStart = sp.Start
		}
	}
	return out
}

func isRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}

func sortSpansDesc(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start > spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
}
