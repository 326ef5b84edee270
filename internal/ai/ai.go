// Package ai is the boundary to the remote generative model. Every caller
// treats the output as untrusted text and keeps a fallback for ErrUnavailable.
package ai

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable reports a transport, quota, timeout or empty-output failure.
	ErrUnavailable = errors.New("ai unavailable")
	// ErrParse reports model output that did not contain the expected shape.
	ErrParse = errors.New("ai output parse failure")
)

// Request is a single prompt plus the system instruction bound to the call.
type Request struct {
	Op                string
	Prompt            string
	SystemInstruction string
}

// Document is raw file content passed to the model inline.
type Document struct {
	Data     []byte
	MimeType string
}

// Gateway generates text from prompts or documents.
type Gateway interface {
	GenerateText(ctx context.Context, req Request) (string, error)
	GenerateFromDocument(ctx context.Context, doc Document, req Request) (string, error)
}

// Disabled is the gateway used when no provider is configured.
type Disabled struct{}

func (Disabled) GenerateText(context.Context, Request) (string, error) {
	return "", ErrUnavailable
}

func (Disabled) GenerateFromDocument(context.Context, Document, Request) (string, error) {
	return "", ErrUnavailable
}

// Failed reports whether err came from the gateway or from parsing its output.
func Failed(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrParse)
}
