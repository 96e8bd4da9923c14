// Package sanitize strips dangerous markup from comment content before it
// enters the moderation and voting pipeline. It is deliberately
// pattern-based rather than a full HTML parser: conservative tag-pair
// removal plus inline event-handler stripping.
package sanitize

import (
	"encoding/json"
	"regexp"
)

var (
	scriptRe  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	iframeRe  = regexp.MustCompile(`(?is)<iframe\b.*?</iframe>`)
	handlerRe = regexp.MustCompile(`(?i)on\w+\s*=\s*["'][^"']*["']`)
)

// Text removes script and iframe blocks and inline on*="..." event
// handlers from a plain string.
func Text(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = iframeRe.ReplaceAllString(s, "")
	s = handlerRe.ReplaceAllString(s, "")
	return s
}

// Content sanitizes comment content of either supported shape: a plain
// JSON string, or a rich-text tree (an object with a "root" node holding
// recursively nested children). Anything else passes through unchanged;
// Content never fails.
func Content(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		out, err := json.Marshal(Text(plain))
		if err != nil {
			return raw
		}
		return out
	}

	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return raw
	}
	root, ok := tree["root"]
	if !ok {
		return raw
	}

	// Unmarshalling already produced a fresh copy, so the walk never
	// touches the caller's bytes.
	sanitizeNode(root)

	out, err := json.Marshal(tree)
	if err != nil {
		return raw
	}
	return out
}

// sanitizeNode walks a rich-text node in place. Raw-HTML nodes get their
// literal value cleaned; every other node type only has its children
// visited. Unrecognized shapes are left alone so one bad node never loses
// the whole document.
func sanitizeNode(node any) {
	m, ok := node.(map[string]any)
	if !ok {
		return
	}

	nodeType, _ := m["type"].(string)
	switch nodeType {
	case "html":
		if value, ok := m["value"].(string); ok {
			m["value"] = Text(value)
		}
	case "paragraph", "heading", "text", "linebreak":
		// Structural and leaf nodes carry no raw markup themselves.
	default:
		// Unknown node types are walked through unchanged.
	}

	children, ok := m["children"].([]any)
	if !ok {
		return
	}
	for _, child := range children {
		sanitizeNode(child)
	}
}
