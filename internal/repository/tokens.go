package repository

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
	"go.uber.org/zap"
)

// messageOverhead approximates the role and framing tokens of one message.
const messageOverhead = 4

// TokenCounter counts the tokens of a text.
type TokenCounter interface {
	CountTokens(text string) int
}

// ApproxCounter estimates four characters per token.
type ApproxCounter struct{}

// CountTokens implements TokenCounter.
func (ApproxCounter) CountTokens(text string) int {
	return len(text) / 4
}

// TiktokenCounter counts with a tiktoken encoding. The encoding is loaded on
// first use; if it cannot be loaded the counter falls back to ApproxCounter.
type TiktokenCounter struct {
	encoding string

	once    sync.Once
	mu      sync.Mutex
	encoder *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a counter for the named encoding, e.g. "cl100k_base".
func NewTiktokenCounter(encoding string) *TiktokenCounter {
	return &TiktokenCounter{encoding: encoding}
}

// CountTokens implements TokenCounter.
func (c *TiktokenCounter) CountTokens(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			log.Warn("tiktoken encoding unavailable, using approximate token counts",
				zap.String("encoding", c.encoding), zap.Error(err))
			return
		}
		c.encoder = enc
	})
	if c.encoder == nil {
		return ApproxCounter{}.CountTokens(text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoder.Encode(text, nil, nil))
}

// MessageTokens counts the tokens of a transcript entry.
func MessageTokens(counter TokenCounter, msg domain.Message) int {
	total := messageOverhead + counter.CountTokens(msg.Content)
	for _, call := range msg.ToolCalls {
		total += counter.CountTokens(call.Function.Name) + counter.CountTokens(call.Function.Arguments)
	}
	return total
}

// TrimTranscript drops the oldest complete exchanges until the transcript
// fits in maxTokens. An exchange starts at a user message and runs up to the
// next one. Leading system messages and the latest exchange are always kept.
func TrimTranscript(transcript []domain.Message, maxTokens int, counter TokenCounter) []domain.Message {
	if maxTokens <= 0 || len(transcript) == 0 {
		return transcript
	}

	head := 0
	for head < len(transcript) && transcript[head].Role == domain.RoleSystem {
		head++
	}

	// exchange start offsets within transcript[head:]
	var starts []int
	for i := head; i < len(transcript); i++ {
		if transcript[i].Role == domain.RoleUser || i == head {
			starts = append(starts, i)
		}
	}

	total := 0
	for _, msg := range transcript {
		total += MessageTokens(counter, msg)
	}

	drop := 0
	for drop < len(starts)-1 && total > maxTokens {
		for i := starts[drop]; i < starts[drop+1]; i++ {
			total -= MessageTokens(counter, transcript[i])
		}
		drop++
	}
	if drop == 0 {
		return transcript
	}

	out := make([]domain.Message, 0, head+len(transcript)-starts[drop])
	out = append(out, transcript[:head]...)
	out = append(out, transcript[starts[drop]:]...)
	return out
}
