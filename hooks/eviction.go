package hooks

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"deepagent/agent"
	"deepagent/backend"
)

// DefaultEvictionThreshold is a reasonable token limit for callers that
// want eviction without tuning it. Eviction itself is opt-in: the hook is
// inert unless constructed with a positive threshold.
const DefaultEvictionThreshold = 20000

// evictionDir is where evicted results land. The original content is
// retrievable byte-exact with read_file.
const evictionDir = "/evictions"

// EvictionHook moves oversized tool results out of the message history,
// replacing them with a pointer to the stored file. File-reading tools are
// excluded so a paged read never evicts itself.
type EvictionHook struct {
	agent.BaseHook
	b         backend.Backend
	active    backend.Backend
	threshold int
	excluded  map[string]bool
	entropy   *ulid.MonotonicEntropy
}

// NewEvictionHook creates an eviction hook. threshold is in tokens; zero or
// negative disables eviction entirely. A nil backend defaults to the
// current run's state backend, rebound in BeforeAgent.
func NewEvictionHook(b backend.Backend, threshold int) *EvictionHook {
	return &EvictionHook{
		b:         b,
		threshold: threshold,
		excluded: map[string]bool{
			"read_file": true,
			"edit_file": true,
		},
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (h *EvictionHook) Name() string { return "eviction" }

func (h *EvictionHook) BeforeAgent(ctx context.Context, state *agent.AgentState) error {
	h.active = h.b
	if h.active == nil {
		h.active = state.FileBackend()
	}
	return nil
}

func (h *EvictionHook) WrapToolCall(ctx context.Context, call agent.ToolCall, next agent.ToolCallFunc) (*agent.ToolResult, error) {
	res, err := next(ctx, call)
	if err != nil || res == nil {
		return res, err
	}
	if h.threshold <= 0 || h.excluded[call.Name] {
		return res, nil
	}
	tokens := agent.CountTokens(res.Output)
	if tokens <= h.threshold {
		return res, nil
	}

	b := h.active
	if b == nil {
		b = h.b
	}
	if b == nil {
		return res, nil
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), h.entropy)
	path := fmt.Sprintf("%s/%s-%s", evictionDir, call.Name, id.String())
	if _, werr := b.Write(ctx, path, res.Output); werr != nil {
		// Storage failure must not lose the result: keep it inline.
		return res, nil
	}

	lines := strings.Count(res.Output, "\n") + 1
	res.Output = fmt.Sprintf(
		"Result too large (%d tokens, %d lines); stored at %s. Use read_file with offset and limit to page through it.",
		tokens, lines, path)
	return res, nil
}
