// Package template renders the {{placeholder}} syntax used by stored
// notification templates.
package template

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render substitutes {{key}} tokens in content with values from data.
// Tokens without a matching key are left verbatim, so rendering never
// fails and is idempotent on already-resolved text.
func Render(content string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		key := match[2 : len(match)-2]
		if value, ok := data[key]; ok {
			return value
		}
		return match
	})
}

// RenderAll renders a template's subject and content in one call.
func RenderAll(subject, content string, data map[string]string) (string, string) {
	return Render(subject, data), Render(content, data)
}
