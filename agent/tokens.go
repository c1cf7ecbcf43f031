package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tokenEncoder *tiktoken.Tiktoken
	encoderOnce  sync.Once
	encoderErr   error
)

func initTokenEncoder() error {
	encoderOnce.Do(func() {
		// cl100k_base is close enough for budget decisions regardless of
		// the actual provider behind llm.Client.
		tokenEncoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoderErr
}

// CountTokens counts tokens in text. Falls back to a len/4 heuristic if the
// encoder is unavailable; eviction and summarization only need an estimate.
func CountTokens(text string) int {
	if err := initTokenEncoder(); err != nil {
		return len(text) / 4
	}
	return len(tokenEncoder.Encode(text, nil, nil))
}

// CountMessageTokens estimates tokens for a turn history, including a small
// per-message overhead for role markers and tool call arguments.
func CountMessageTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += 4 // per-message framing overhead
		total += CountTokens(m.Content)
		for _, tc := range m.ToolCalls {
			if tc.RawArgs != "" {
				total += CountTokens(tc.RawArgs)
			} else {
				total += CountTokens(tc.Name)
			}
		}
	}
	return total
}
