// Package types defines the memory capability contract a host runtime
// programs against. Any backend that can load, persist and clear a
// conversation's context can be plugged in behind it.
package types

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/memgate/membridge/pkg/config"
	"github.com/memgate/membridge/pkg/memgate"
)

// TurnUpdate carries one turn's outcome into SaveContext. Output holds the
// turn's produced text, one entry per line or message part; a nil or
// effectively empty output makes SaveContext a no-op. Metadata is
// host-supplied and only consulted for user attribution.
type TurnUpdate struct {
	Output   []string
	Metadata map[string]string
}

// Memory is the capability contract. Init must complete successfully
// before any other operation is invoked; the host guarantees serialized
// access per node instance.
type Memory interface {
	// Init resolves credentials and options and prepares the backend for
	// the current run.
	Init(ctx context.Context) error

	// LoadMemoryVariables returns the recent turn history, oldest-first in
	// the backend's listing order.
	LoadMemoryVariables(ctx context.Context) ([]openai.ChatCompletionMessage, error)

	// SaveContext persists one turn's output.
	SaveContext(ctx context.Context, update TurnUpdate) error

	// Clear removes the stored history.
	Clear(ctx context.Context) error

	// SimilaritySearch is the vector-store slot a host may probe.
	// Implementations without semantic retrieval return an empty result.
	SimilaritySearch(ctx context.Context, query string, k int) ([]memgate.MemoryHit, error)
}

// Describable exposes the static option schema of a memory variant so a
// host UI can render and validate its configuration.
type Describable interface {
	ConfigForm() []config.Field
}
