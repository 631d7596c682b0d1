// Package piiclassifier provides a Classifier backed by the PII Sweep
// detect endpoint. The service reports matched values rather than offsets,
// so every whole-word occurrence is located in the original text here.
package piiclassifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/gonkalabs/piisweep-go"
	"github.com/gonkalabs/piisweep-go/internal/sanitize"
)

// Detector is the part of *piisweep.Client the classifier needs.
type Detector interface {
	Detect(ctx context.Context, text string, types ...piisweep.PIIType) (*piisweep.DetectResult, error)
}

// Classifier turns detect results into spans.
type Classifier struct {
	detector Detector
	types    []piisweep.PIIType
}

// New creates a Classifier. types restricts the categories asked for;
// none means all of them.
func New(d Detector, types ...piisweep.PIIType) *Classifier {
	return &Classifier{detector: d, types: types}
}

// Classify sends text to the detect endpoint and returns sensitive spans.
// It is safe for concurrent use.
func (c *Classifier) Classify(ctx context.Context, text string) ([]sanitize.Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	res, err := c.detector.Detect(ctx, text, c.types...)
	if err != nil {
		return nil, fmt.Errorf("piiclassifier: detect: %w", err)
	}
	if !res.PIIFound && len(res.Detections) == 0 {
		return nil, nil
	}

	var spans []sanitize.Span
	seen := make(map[string]bool)
	for _, d := range res.Detections {
		val := d.Original
		if strings.TrimSpace(val) == "" || seen[val] {
			continue
		}
		seen[val] = true
		spans = append(spans, locate(text, val, strings.ToUpper(d.Type))...)
	}
	return spans, nil
}

// locate returns a span for every occurrence of val in text that is not
// part of a longer word.
func locate(text, val, label string) []sanitize.Span {
	var spans []sanitize.Span
	start := 0
	for {
		idx := strings.Index(text[start:], val)
		if idx < 0 {
			break
		}
		abs := start + idx
		end := abs + len(val)
		start = end
		if abs > 0 && !sanitize.IsWordBoundaryByte(text[abs-1]) {
			continue
		}
		if end < len(text) && !sanitize.IsWordBoundaryByte(text[end]) {
			continue
		}
		spans = append(spans, sanitize.Span{
			Start: abs,
			End:   end,
			Label: label,
			Score: 1.0,
		})
	}
	return spans
}
