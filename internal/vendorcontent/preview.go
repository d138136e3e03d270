package vendorcontent

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/goliatone/go-tms/internal/document"
)

// Preview renders the job payload as an HTML context file so translators see
// the content they are working on. The payload is flattened to a markdown
// outline first, then converted with goldmark.
func Preview(payload document.Document) ([]byte, error) {
	md := previewMarkdown(payload)

	engine := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	var buf bytes.Buffer
	if err := engine.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("rendering preview: %w", err)
	}
	return buf.Bytes(), nil
}

func previewMarkdown(payload document.Document) string {
	var b strings.Builder
	if id, ok := payload[document.IDField].(string); ok {
		b.WriteString("# " + id + "\n\n")
	}
	writeValue(&b, any(payload), 2)
	return b.String()
}

func writeValue(b *strings.Builder, value any, depth int) {
	switch typed := value.(type) {
	case map[string]any:
		for _, key := range sortedFields(typed) {
			if strings.HasPrefix(key, "_") {
				continue
			}
			b.WriteString(strings.Repeat("#", min(depth, 6)) + " " + key + "\n\n")
			writeValue(b, typed[key], depth+1)
		}
	case []any:
		for _, item := range typed {
			if document.IsContainer(item) {
				writeValue(b, item, depth)
				continue
			}
			b.WriteString(fmt.Sprintf("- %v\n", item))
		}
		b.WriteString("\n")
	default:
		if value != nil {
			b.WriteString(fmt.Sprintf("%v\n\n", value))
		}
	}
}

func sortedFields(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
