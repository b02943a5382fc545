// Package langchain exposes a membridge memory backend through the
// langchaingo schema.Memory contract, so chains built on that stack can
// use the remote memory service without knowing about it.
package langchain

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/memgate/membridge/core/types"
)

const defaultMemoryKey = "history"

var _ schema.Memory = &Memory{}

// Memory adapts a types.Memory backend to schema.Memory.
type Memory struct {
	backend   types.Memory
	memoryKey string
}

func NewMemory(backend types.Memory) *Memory {
	return &Memory{backend: backend, memoryKey: defaultMemoryKey}
}

// WithMemoryKey sets the variable name the history is returned under.
func (m *Memory) WithMemoryKey(key string) *Memory {
	m.memoryKey = key
	return m
}

func (m *Memory) GetMemoryKey(ctx context.Context) string {
	return m.memoryKey
}

func (m *Memory) MemoryVariables(ctx context.Context) []string {
	return []string{m.memoryKey}
}

// LoadMemoryVariables returns the stored history as AI chat messages under
// the memory key, preserving the backend's ordering.
func (m *Memory) LoadMemoryVariables(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	history, err := m.backend.LoadMemoryVariables(ctx)
	if err != nil {
		return nil, err
	}
	messages := make([]llms.ChatMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, llms.AIChatMessage{Content: msg.Content})
	}
	return map[string]any{m.memoryKey: messages}, nil
}

// SaveContext persists the turn's output values. The "output" key wins;
// otherwise a sole string value is used. A "userId" input is forwarded as
// attribution metadata.
func (m *Memory) SaveContext(ctx context.Context, inputs map[string]any, outputs map[string]any) error {
	update := types.TurnUpdate{Output: outputValues(outputs)}
	if userID, ok := inputs["userId"].(string); ok && userID != "" {
		update.Metadata = map[string]string{"userId": userID}
	}
	return m.backend.SaveContext(ctx, update)
}

func (m *Memory) Clear(ctx context.Context) error {
	return m.backend.Clear(ctx)
}

func outputValues(outputs map[string]any) []string {
	if v, ok := pick(outputs["output"]); ok {
		return v
	}
	if v, ok := pick(outputs["text"]); ok {
		return v
	}
	if len(outputs) == 1 {
		for _, raw := range outputs {
			if v, ok := pick(raw); ok {
				return v
			}
		}
	}
	return nil
}

func pick(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	}
	return nil, false
}
