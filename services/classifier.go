package services

import (
	"context"
	"fmt"
	"strings"
)

// Verdict is the outcome of a content-safety classification.
type Verdict int

const (
	VerdictAllowed Verdict = iota
	VerdictBlocked
)

// SafetyClassifier decides whether content is safe to publish. A single call
// must complete before the comment decision is made; implementations do not
// retry internally.
type SafetyClassifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

// HTTPClassifier asks the oracle for a SAFE/UNSAFE verdict.
type HTTPClassifier struct {
	client *OracleClient
}

// NewHTTPClassifier wraps an oracle client as a SafetyClassifier.
func NewHTTPClassifier(client *OracleClient) *HTTPClassifier {
	return &HTTPClassifier{client: client}
}

// Classify returns VerdictBlocked when the oracle marks the text unsafe.
// Errors are returned to the caller, which must treat them as Blocked
// (fail-closed).
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	prompt := fmt.Sprintf("Answer with a single word, SAFE or UNSAFE. Is this text safe to publish: %s", text)
	answer, err := c.client.Complete(ctx, prompt)
	if err != nil {
		return VerdictBlocked, err
	}
	if strings.Contains(strings.ToUpper(answer), "UNSAFE") {
		return VerdictBlocked, nil
	}
	return VerdictAllowed, nil
}
