package llm

import (
	"encoding/json"
	"regexp"
)

// toolTagRegex matches the <tool name="...">{json}</tool> text convention
// some OpenRouter-hosted models fall back to when they don't honor the
// structured tool-calling API. Grounded on the teacher's
// architectures/think_deep/runtime.ParseToolCalls.
var toolTagRegex = regexp.MustCompile(`(?s)<tool\s+name="([^"]+)">\s*(\{.*?\})\s*</tool>`)

// ParseToolCallsFromText extracts <tool name="...">{json}</tool> blocks
// from response text. It is used only as a parsing fallback: the primary
// path is ToolClient.CompleteWithTools's structured ToolCalls field.
func ParseToolCallsFromText(content string) []ToolCall {
	matches := toolTagRegex.FindAllStringSubmatch(content, -1)
	var calls []ToolCall
	for _, m := range matches {
		if len(m) < 3 {
			continue
		}
		var input map[string]interface{}
		if err := json.Unmarshal([]byte(m[2]), &input); err != nil {
			continue
		}
		calls = append(calls, ToolCall{Name: m[1], Input: input})
	}
	return calls
}

// MergeToolCalls returns structured (the primary path) if non-empty,
// falling back to calls parsed out of content otherwise.
func MergeToolCalls(structured []ToolCall, content string) []ToolCall {
	if len(structured) > 0 {
		return structured
	}
	return ParseToolCallsFromText(content)
}
