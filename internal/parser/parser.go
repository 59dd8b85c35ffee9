// Package parser extracts the title and tag line from plain-text note content.
package parser

import "strings"

// Result holds the output of parsing a note.
type Result struct {
	Title string
	Tags  []string
	Body  string
}

// Parse derives the title (first non-blank line) and tags (comma-separated
// values on the first line bearing tagPrefix) from raw note bytes.
func Parse(data []byte, tagPrefix string) *Result {
	body := strings.TrimSpace(string(data))

	res := &Result{Body: body}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if res.Title == "" && !strings.HasPrefix(trimmed, tagPrefix) {
			res.Title = trimmed
		}
		if res.Tags == nil && tagPrefix != "" && strings.HasPrefix(trimmed, tagPrefix) {
			res.Tags = splitTags(strings.TrimPrefix(trimmed, tagPrefix))
		}
		if res.Title != "" && res.Tags != nil {
			break
		}
	}
	return res
}

// TagLine renders tags back into a prefixed tag line.
func TagLine(tagPrefix string, tags []string) string {
	return tagPrefix + strings.Join(tags, ", ")
}

func splitTags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
