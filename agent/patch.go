package agent

// cancelledResult is the synthesized output for a tool call that never
// produced a result (crash mid-step, interrupted sibling calls).
const cancelledResult = "Error: tool call was cancelled before completion"

// DeniedResult is the synthesized output for a tool call rejected by an
// approval decision. The tool is never invoked.
func DeniedResult(toolName, reason string) string {
	out := "Error: tool call to " + toolName + " was denied"
	if reason != "" {
		out += ": " + reason
	}
	return out
}

// PatchToolCalls repairs a history in which an assistant turn carries tool
// calls without matching results. For each orphaned call a cancelled result
// is inserted directly after the turn's existing results, so that every
// call has exactly one result before the history is replayed to the model.
func PatchToolCalls(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for i := 0; i < len(msgs); i++ {
		msg := msgs[i]
		out = append(out, msg)
		if msg.Role != RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}

		// Collect the results immediately following this turn.
		answered := make(map[string]bool, len(msg.ToolCalls))
		for j := i + 1; j < len(msgs) && msgs[j].Role == RoleTool; j++ {
			answered[msgs[j].ToolCallID] = true
			out = append(out, msgs[j])
			i = j
		}

		for _, tc := range msg.ToolCalls {
			if !answered[tc.ID] {
				out = append(out, ToolMsg(tc.ID, tc.Name, cancelledResult))
			}
		}
	}
	return out
}
