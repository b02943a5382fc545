// Package bridge implements the memory capability contract on top of the
// memgate service: it resolves credentials and options into a reusable
// tenant-scoped client, reshapes remote listings into turn history, and
// packages turn output into tenant-scoped writes.
package bridge

import (
	"context"
	"strings"

	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai"

	"github.com/memgate/membridge/core/state"
	"github.com/memgate/membridge/core/types"
	"github.com/memgate/membridge/pkg/memgate"
)

// FallbackUserID attributes a write when neither the credentials nor the
// turn metadata name a user.
const FallbackUserID = "default-user"

var _ types.Memory = &Bridge{}
var _ types.Describable = &Bridge{}

// Bridge is one node instance's view of the memory capability. The struct
// itself is a cheap handle: all run state lives in the shared store, so
// the host may recreate the Bridge between calls without losing the
// client.
type Bridge struct {
	nodeID      string
	store       *state.Store
	credentials CredentialSource
	options     map[string]string
}

// New returns a bridge handle for one node instance. Options follow the
// user-facing configuration keys: scope, tags, maxItems, includeDeleted.
func New(nodeID string, store *state.Store, credentials CredentialSource, options map[string]string) *Bridge {
	return &Bridge{
		nodeID:      nodeID,
		store:       store,
		credentials: credentials,
		options:     options,
	}
}

// Init resolves credentials, binds options and builds the HTTP client,
// then writes the run-state record. It must complete before any other
// operation; a repeated Init replaces the record.
func (b *Bridge) Init(ctx context.Context) error {
	creds, err := b.credentials.Resolve(ctx, b.nodeID)
	if err != nil {
		return err
	}

	params, err := bindParams(b.options)
	if err != nil {
		return err
	}

	b.store.Set(b.nodeID, &state.Record{
		Client:         memgate.NewClient(creds),
		Credentials:    creds,
		Scope:          params.Scope,
		Tags:           params.Tags,
		MaxItems:       params.MaxItems,
		IncludeDeleted: params.IncludeDeleted,
	})

	xlog.Debug("Memory bridge initialized",
		"node", b.nodeID, "scope", params.Scope, "tags", params.Tags,
		"maxItems", params.MaxItems, "includeDeleted", params.IncludeDeleted)
	return nil
}

// record returns the node's run state, or ErrNotInitialized.
func (b *Bridge) record() (*state.Record, error) {
	rec := b.store.Get(b.nodeID)
	if rec == nil || rec.Client == nil {
		return nil, ErrNotInitialized
	}
	return rec, nil
}

// LoadMemoryVariables fetches the tenant's recent items and maps them to
// assistant messages in the service's listing order. Items flagged deleted
// are filtered here no matter what the service was asked for: the
// include_deleted flag may be honored loosely on the remote side.
func (b *Bridge) LoadMemoryVariables(ctx context.Context) ([]openai.ChatCompletionMessage, error) {
	rec, err := b.record()
	if err != nil {
		return nil, err
	}

	items, err := rec.Client.List(ctx, rec.MaxItems, rec.IncludeDeleted)
	if err != nil {
		xlog.Error("Loading memory history failed", "node", b.nodeID, "error", err)
		return nil, err
	}

	history := []openai.ChatCompletionMessage{}
	for _, item := range items {
		if item.Payload.Deleted {
			continue
		}
		history = append(history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: item.Text,
		})
	}

	xlog.Debug("Loaded memory history", "node", b.nodeID, "items", len(items), "kept", len(history))
	return history, nil
}

// SaveContext writes one turn's output as a tenant-scoped memory. An
// absent or effectively empty output sends nothing.
func (b *Bridge) SaveContext(ctx context.Context, update types.TurnUpdate) error {
	rec, err := b.record()
	if err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(update.Output, "\n"))
	if text == "" {
		return nil
	}

	userID := rec.Credentials.DefaultUserID
	if userID == "" {
		userID = update.Metadata["userId"]
	}
	if userID == "" {
		userID = FallbackUserID
	}

	if _, err := rec.Client.Add(ctx, memgate.AddRequest{
		UserID: userID,
		Scope:  rec.Scope,
		Text:   text,
		Tags:   rec.Tags,
	}); err != nil {
		xlog.Error("Saving memory context failed", "node", b.nodeID, "error", err)
		return err
	}
	return nil
}

// Clear soft-deletes the tenant's stored items in one batch. The
// enumeration is bounded by the configured maxItems page, so a larger
// history needs repeated Clear calls (or a higher maxItems); this bridge
// does not paginate and never issues a hard delete.
func (b *Bridge) Clear(ctx context.Context) error {
	rec, err := b.record()
	if err != nil {
		return err
	}

	items, err := rec.Client.List(ctx, rec.MaxItems, true)
	if err != nil {
		xlog.Error("Enumerating memories for clear failed", "node", b.nodeID, "error", err)
		return err
	}
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if err := rec.Client.DeleteBatch(ctx, ids, false); err != nil {
		xlog.Error("Clearing memories failed", "node", b.nodeID, "error", err)
		return err
	}

	xlog.Debug("Cleared memories", "node", b.nodeID, "count", len(ids))
	return nil
}

// SimilaritySearch fills the vector-store capability slot. This bridge
// does not perform semantic retrieval, so a probe always comes back
// empty without touching the service.
func (b *Bridge) SimilaritySearch(ctx context.Context, query string, k int) ([]memgate.MemoryHit, error) {
	return []memgate.MemoryHit{}, nil
}
