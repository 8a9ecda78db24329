package turns

// FindLastByKind returns the turns of the requested kinds, preserving order.
func FindLastByKind(ts []Turn, kinds ...Kind) []Turn {
	lookup := map[Kind]bool{}
	for _, k := range kinds {
		lookup[k] = true
	}
	ret := make([]Turn, 0, len(ts))
	for _, t := range ts {
		if lookup[t.Kind] {
			ret = append(ret, t)
		}
	}
	return ret
}

// PendingToolCalls returns tool_call turns that have no matching tool_result
// later in the sequence.
func PendingToolCalls(ts []Turn) []Turn {
	answered := map[string]bool{}
	for _, t := range ts {
		if t.Kind == KindToolResult {
			answered[t.ToolCallID()] = true
		}
	}
	var pending []Turn
	for _, t := range ts {
		if t.Kind == KindToolCall && !answered[t.ToolCallID()] {
			pending = append(pending, t)
		}
	}
	return pending
}

// LastAssistantText returns the text of the last assistant text turn, or "".
func LastAssistantText(ts []Turn) string {
	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].Role == RoleAssistant && ts[i].Kind == KindText {
			return ts[i].Text()
		}
	}
	return ""
}
