package langchain_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"

	"github.com/memgate/membridge/core/types"
	"github.com/memgate/membridge/pkg/langchain"
	"github.com/memgate/membridge/pkg/memgate"
)

// recordingMemory is a types.Memory double that captures calls.
type recordingMemory struct {
	history []openai.ChatCompletionMessage
	saved   []types.TurnUpdate
	cleared int
}

func (r *recordingMemory) Init(ctx context.Context) error { return nil }

func (r *recordingMemory) LoadMemoryVariables(ctx context.Context) ([]openai.ChatCompletionMessage, error) {
	return r.history, nil
}

func (r *recordingMemory) SaveContext(ctx context.Context, update types.TurnUpdate) error {
	r.saved = append(r.saved, update)
	return nil
}

func (r *recordingMemory) Clear(ctx context.Context) error {
	r.cleared++
	return nil
}

func (r *recordingMemory) SimilaritySearch(ctx context.Context, query string, k int) ([]memgate.MemoryHit, error) {
	return []memgate.MemoryHit{}, nil
}

var _ = Describe("Memory adapter", func() {
	var (
		ctx     context.Context
		backend *recordingMemory
		adapter *langchain.Memory
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = &recordingMemory{}
		adapter = langchain.NewMemory(backend)
	})

	It("exposes a single memory variable named history", func() {
		Expect(adapter.GetMemoryKey(ctx)).To(Equal("history"))
		Expect(adapter.MemoryVariables(ctx)).To(Equal([]string{"history"}))
	})

	It("supports renaming the memory key", func() {
		adapter = adapter.WithMemoryKey("chat_history")
		Expect(adapter.GetMemoryKey(ctx)).To(Equal("chat_history"))
	})

	It("returns the history as AI chat messages under the memory key", func() {
		backend.history = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleAssistant, Content: "first"},
			{Role: openai.ChatMessageRoleAssistant, Content: "second"},
		}
		vars, err := adapter.LoadMemoryVariables(ctx, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(vars).To(HaveKey("history"))
		messages := vars["history"].([]llms.ChatMessage)
		Expect(messages).To(Equal([]llms.ChatMessage{
			llms.AIChatMessage{Content: "first"},
			llms.AIChatMessage{Content: "second"},
		}))
	})

	It("saves the output value", func() {
		err := adapter.SaveContext(ctx, nil, map[string]any{"output": "remember this"})
		Expect(err).ToNot(HaveOccurred())
		Expect(backend.saved).To(HaveLen(1))
		Expect(backend.saved[0].Output).To(Equal([]string{"remember this"}))
	})

	It("saves multi-part outputs as separate lines", func() {
		err := adapter.SaveContext(ctx, nil, map[string]any{"output": []string{"a", "b"}})
		Expect(err).ToNot(HaveOccurred())
		Expect(backend.saved[0].Output).To(Equal([]string{"a", "b"}))
	})

	It("falls back to a sole string output value", func() {
		err := adapter.SaveContext(ctx, nil, map[string]any{"answer": "42"})
		Expect(err).ToNot(HaveOccurred())
		Expect(backend.saved[0].Output).To(Equal([]string{"42"}))
	})

	It("forwards a userId input as attribution metadata", func() {
		err := adapter.SaveContext(ctx, map[string]any{"userId": "u2"}, map[string]any{"output": "x"})
		Expect(err).ToNot(HaveOccurred())
		Expect(backend.saved[0].Metadata).To(HaveKeyWithValue("userId", "u2"))
	})

	It("delegates Clear", func() {
		Expect(adapter.Clear(ctx)).To(Succeed())
		Expect(backend.cleared).To(Equal(1))
	})
})
