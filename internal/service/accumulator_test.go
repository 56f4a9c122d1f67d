package service

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/llm"
)

func fragment(index int, id, name, args string) llm.ToolCallDelta {
	return llm.ToolCallDelta{Index: index, ID: id, Function: llm.ToolCallFunctionDelta{Name: name, Arguments: args}}
}

func TestAccumulatorMergesFragments(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(fragment(0, "call_1", "create_contact", ""))
	acc.Add(fragment(0, "", "", `{"full_name":`))
	acc.Add(fragment(0, "", "", `"Jane"}`))

	calls := acc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "function", calls[0].Type)
	assert.Equal(t, "create_contact", calls[0].Function.Name)
	assert.Equal(t, `{"full_name":"Jane"}`, calls[0].Function.Arguments)
}

func TestAccumulatorFirstSeenOrder(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(fragment(1, "b", "search_contacts", `{"query":`))
	acc.Add(fragment(0, "a", "create_task", `{"title":"x"}`))
	acc.Add(fragment(1, "", "", `"jane"}`))

	calls := acc.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "b", calls[0].ID)
	assert.Equal(t, `{"query":"jane"}`, calls[0].Function.Arguments)
	assert.Equal(t, "a", calls[1].ID)
}

func TestAccumulatorLastWriteWinsForIDAndName(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(fragment(0, "first", "old_name", ""))
	acc.Add(fragment(0, "second", "new_name", "{}"))

	calls := acc.Calls()
	assert.Equal(t, "second", calls[0].ID)
	assert.Equal(t, "new_name", calls[0].Function.Name)
}

func insertAt(deltas []llm.ToolCallDelta, i int, d llm.ToolCallDelta) []llm.ToolCallDelta {
	deltas = append(deltas, llm.ToolCallDelta{})
	copy(deltas[i+1:], deltas[i:])
	deltas[i] = d
	return deltas
}

// Splitting argument text at arbitrary points, placing the id and name
// fragments anywhere and interleaving calls must not change the result.
func TestAccumulatorArbitrarySplits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	args := []string{
		`{"full_name":"Jane Doe","email":"jane@example.com"}`,
		`{"title":"Quarterly review","start_datetime":"2025-03-01 10:00:00","end_datetime":"2025-03-01 11:00:00"}`,
	}

	for round := 0; round < 50; round++ {
		pending := make([][]llm.ToolCallDelta, len(args))
		for idx, a := range args {
			for pos := 0; pos < len(a); {
				n := 1 + rng.Intn(8)
				if pos+n > len(a) {
					n = len(a) - pos
				}
				pending[idx] = append(pending[idx], fragment(idx, "", "", a[pos:pos+n]))
				pos += n
			}
			pending[idx] = insertAt(pending[idx], rng.Intn(len(pending[idx])+1), fragment(idx, fmt.Sprintf("call_%d", idx), "", ""))
			pending[idx] = insertAt(pending[idx], rng.Intn(len(pending[idx])+1), fragment(idx, "", "tool", ""))
		}

		acc := NewToolCallAccumulator()
		for len(pending[0])+len(pending[1]) > 0 {
			idx := rng.Intn(2)
			if len(pending[idx]) == 0 {
				idx = 1 - idx
			}
			acc.Add(pending[idx][0])
			pending[idx] = pending[idx][1:]
		}

		calls := acc.Calls()
		require.Len(t, calls, 2)
		for _, call := range calls {
			require.True(t, strings.HasPrefix(call.ID, "call_"))
			idx := int(call.ID[len("call_")] - '0')
			assert.Equal(t, args[idx], call.Function.Arguments)
			assert.Equal(t, "tool", call.Function.Name)
		}
	}
}
