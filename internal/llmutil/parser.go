// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// jsonObjectRegex extracts a JSON object if the response is wrapped in markdown.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json|JSON)?\\s*({.*})\\s*\x60\x60\x60")

	// decoder keeps numbers as json.Number so large numeric ids survive decoding intact.
	decoder = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		UseNumber:              true,
	}.Froze()
)

// ExtractObject returns the JSON object embedded in an extraction model's
// response. Markdown code fences are stripped and surrounding prose is cut
// down to the outermost braces. Input without any object is returned trimmed,
// so the caller's decoder reports the error.
func ExtractObject(response string) string {
	response = strings.TrimSpace(response)

	// 1. Handle markdown wrapping (most common case).
	if strings.HasPrefix(response, "```") {
		if matches := jsonObjectRegex.FindStringSubmatch(response); len(matches) > 1 {
			return matches[1]
		}
	}

	// 2. Find the structure within conversational text.
	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first != -1 && last > first {
		return response[first : last+1]
	}
	return response
}

// ParseJSONResponse parses a model response into T after ExtractObject.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload := ExtractObject(response)

	var result T
	if err := decoder.UnmarshalFromString(payload, &result); err != nil {
		// Provide a detailed error message including the extracted JSON snippet.
		return nil, fmt.Errorf("failed to unmarshal JSON response: %w. Extracted JSON (truncated): %s", err, truncateString(payload, 200))
	}
	return &result, nil
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Simple truncation; does not account for rune boundaries but sufficient for error logging.
	return s[:maxLen] + "..."
}
