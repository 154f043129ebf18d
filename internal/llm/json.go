package llm

import (
	"encoding/json"
	"log"
	"strings"
)

// StripFences removes a surrounding markdown code fence from an LLM response,
// if present.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.Join(lines[1:endIdx], "\n")
}

// ParseJSONResponse parses a JSON object response from an LLM, tolerating
// markdown code fences. Returns nil when the text is empty or not JSON.
func ParseJSONResponse(text string) map[string]any {
	text = StripFences(text)
	if text == "" {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		log.Printf("Failed to parse LLM response as JSON: %v", err)
		return nil
	}

	return result
}

// DecodeJSONResponse decodes a fenced-or-plain JSON response into v.
func DecodeJSONResponse(text string, v any) error {
	return json.Unmarshal([]byte(StripFences(text)), v)
}
