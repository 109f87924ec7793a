// Package generate turns chunk text into flashcard records by calling a
// remote text-generation service.
package generate

import (
	"context"

	"github.com/marbleworks/ankigen/internal/flashcard"
)

// Request describes one generation call: the chunk text, the target
// card language and the number of cards to ask for.
type Request struct {
	Text     string
	Language string
	Count    int
}

// Generator is the boundary between the pipeline and a remote model.
// Implementations must fail with ErrCredentialMissing before any
// network call when no credential is configured, and must surface
// auth rejections as ErrCredential.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]flashcard.Record, error)
}

// Func adapts a plain function to the Generator interface. Used by
// tests and the two-stage variant.
type Func func(ctx context.Context, req Request) ([]flashcard.Record, error)

func (f Func) Generate(ctx context.Context, req Request) ([]flashcard.Record, error) {
	return f(ctx, req)
}
