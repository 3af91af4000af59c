package nlp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// RemoveThinkTags removes <think> tags and everything in between them from a
// string. Reasoning models emit these blocks before the answer proper.
func RemoveThinkTags(input string) string {
	return thinkTagRegex.ReplaceAllString(input, "")
}

// ExtractJSONFromResponse extracts a JSON document from an LLM response that
// may wrap it in markdown code fences or surrounding prose.
func ExtractJSONFromResponse(response string) string {
	response = strings.TrimSpace(response)

	// Check for ```json ... ``` pattern
	if strings.Contains(response, "```json") {
		start := strings.Index(response, "```json")
		end := strings.Index(response[start+7:], "```")
		if end != -1 {
			return strings.TrimSpace(response[start+7 : start+7+end])
		}
	}

	// Check for ``` ... ``` pattern
	if strings.HasPrefix(response, "```") {
		lines := strings.Split(response, "\n")
		if len(lines) > 2 {
			return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	// Try to find JSON object boundaries
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart != -1 && jsonEnd != -1 && jsonEnd > jsonStart {
		return response[jsonStart : jsonEnd+1]
	}

	// Try to find JSON array boundaries
	jsonStart = strings.Index(response, "[")
	jsonEnd = strings.LastIndex(response, "]")
	if jsonStart != -1 && jsonEnd != -1 && jsonEnd > jsonStart {
		return response[jsonStart : jsonEnd+1]
	}

	return response
}

// UnmarshalLenient decodes a raw LLM response into target. It strips think
// tags and code fences, then attempts a strict json.Unmarshal, and falls back
// to repairing the document when the model emitted malformed JSON (trailing
// commas, single quotes, truncated output).
func UnmarshalLenient(response string, target any) error {
	cleaned := ExtractJSONFromResponse(RemoveThinkTags(response))

	if err := json.Unmarshal([]byte(cleaned), target); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("response is not valid JSON and could not be repaired: %w", err)
	}

	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return fmt.Errorf("repaired response is not valid JSON: %w", err)
	}

	return nil
}
