package assistant

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("reply contains no JSON object")

// decodeReply extracts the JSON object from a model reply. Markdown code
// fences and text around the object are ignored.
func decodeReply(text string, out any) error {
	s := strings.ReplaceAll(text, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	if err := json.Unmarshal([]byte(s), out); err == nil {
		return nil
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return errNoJSON
	}
	return json.Unmarshal([]byte(s[start:end+1]), out)
}
