// Package normalize turns stored slide payloads into plain text.
//
// Slides arrive in several shapes: plain text, a JSON tree of rich-text blocks,
// or a JSON object with title/description/content fields. Every shape reduces
// to newline-separated text. Normalization never fails; malformed input
// degrades to its raw string form.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hyperjump/fuda/internal/models"
)

// Item returns the text for a slide. Pre-extracted TextContent wins when non-blank.
func Item(item *models.ContentItem) string {
	if item == nil {
		return ""
	}
	if strings.TrimSpace(item.TextContent) != "" {
		return item.TextContent
	}
	return Raw(item.Content)
}

// Raw normalizes a stored content payload.
func Raw(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	// A JSON string may itself wrap an encoded tree.
	if s, ok := v.(string); ok {
		var inner interface{}
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return s
		}
		v = inner
	}
	return Value(v)
}

// Value normalizes an already decoded JSON value.
func Value(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []interface{}:
		return blocks(t)
	case map[string]interface{}:
		if isDocument(t) {
			return document(t)
		}
		return block(t)
	default:
		return scalar(t)
	}
}

func isDocument(m map[string]interface{}) bool {
	for _, k := range []string{"title", "description", "content"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// document renders {title, description, content}; content may be text or a block tree.
func document(m map[string]interface{}) string {
	var parts []string
	for _, k := range []string{"title", "description"} {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	switch c := m["content"].(type) {
	case string:
		if strings.TrimSpace(c) != "" {
			parts = append(parts, c)
		}
	case []interface{}:
		if s := blocks(c); s != "" {
			parts = append(parts, s)
		}
	case map[string]interface{}:
		if s := Value(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// blocks renders top-level blocks one per line, dropping empty ones.
func blocks(items []interface{}) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(node(it)); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

func node(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		return block(t)
	case []interface{}:
		return inline(t)
	}
	return ""
}

// block renders one rich-text block. List blocks keep one "- item" line per child.
func block(m map[string]interface{}) string {
	if s, ok := m["text"].(string); ok {
		return s
	}
	children, _ := m["children"].([]interface{})
	if typ, _ := m["type"].(string); isList(typ) {
		lines := make([]string, 0, len(children))
		for _, c := range children {
			if s := strings.TrimSpace(node(c)); s != "" {
				lines = append(lines, "- "+s)
			}
		}
		return strings.Join(lines, "\n")
	}
	return inline(children)
}

// inline joins children of a single block with spaces.
func inline(children []interface{}) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		if s := strings.TrimSpace(node(c)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func isList(typ string) bool {
	switch strings.ToLower(typ) {
	case "bulleted-list", "numbered-list", "bulleted_list", "numbered_list", "ul", "ol", "list":
		return true
	}
	return false
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
