package genai

import "strings"

// ExtractJSON extracts a JSON document from model output that may be wrapped
// in markdown code fences or surrounded by prose. It returns the outermost
// {...} object when one is present, otherwise the trimmed input.
func ExtractJSON(text string) string {
	jsonText := strings.TrimSpace(text)

	// Strip a surrounding ``` / ```json fence pair if present.
	if strings.HasPrefix(jsonText, "```") {
		first := strings.Index(jsonText, "```")
		last := strings.LastIndex(jsonText, "```")
		if last > first {
			jsonText = strings.TrimSpace(jsonText[first+3 : last])
			jsonText = strings.TrimSpace(strings.TrimPrefix(jsonText, "json"))
		}
	}

	// Extract the outermost object.
	start := strings.Index(jsonText, "{")
	end := strings.LastIndex(jsonText, "}")
	if start >= 0 && end > start {
		return jsonText[start : end+1]
	}
	return jsonText
}
