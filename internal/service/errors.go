// Package service implements the chat and daily-report pipelines on top of
// the session/report store, the knowledge retriever and the LLM clients.
package service

import "errors"

// Sentinel errors for chat and report operations. Use errors.Is() to check
// for these in calling code; the HTTP layer maps them to status codes.
var (
	// ErrValidation indicates bad input: empty or oversized content, a
	// malformed date, an invalid page. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrState indicates the operation conflicts with session state, e.g. a
	// turn that would break role alternation.
	ErrState = errors.New("state error")

	// ErrUpstream indicates the retriever or generative model failed or
	// timed out. The caller decides on retry; the service never retries to
	// avoid duplicate side effects.
	ErrUpstream = errors.New("upstream error")

	// ErrExtraction indicates the model produced unparsable or incomplete
	// structured output for a report.
	ErrExtraction = errors.New("extraction error")

	// ErrNotFound indicates an unknown session or report.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the session belongs to a different user.
	ErrUnauthorized = errors.New("unauthorized")
)
