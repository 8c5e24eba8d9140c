package services

import (
	"context"
	"fmt"
)

// ReplyGenerator produces a reply to a comment. Failures propagate to the
// caller; the executor owns the retry policy and the output length bound.
type ReplyGenerator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// HTTPResponder asks the oracle for a reply to the given comment text.
type HTTPResponder struct {
	client *OracleClient
	maxLen int
}

// NewHTTPResponder wraps an oracle client as a ReplyGenerator. maxLen is
// passed to the oracle as a hint only; enforcement happens in the executor.
func NewHTTPResponder(client *OracleClient, maxLen int) *HTTPResponder {
	if maxLen <= 0 {
		maxLen = 256
	}
	return &HTTPResponder{client: client, maxLen: maxLen}
}

// Generate returns the oracle's reply text.
func (r *HTTPResponder) Generate(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Reply to this comment using less than %d symbols: %s", r.maxLen, text)
	return r.client.Complete(ctx, prompt)
}
