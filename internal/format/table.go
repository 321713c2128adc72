package format

import (
	"path/filepath"
	"strings"

	"github.com/opsfactor/tgrender/internal/value"
)

// Flatten collapses nested maps into dotted keys, preserving order. Lists
// are pre-rendered for table display.
func Flatten(data *value.Map, prefix string) *value.Map {
	result := value.NewMap()
	for pair := data.Oldest(); pair != nil; pair = pair.Next() {
		fullKey := pair.Key
		if prefix != "" {
			fullKey = prefix + "." + pair.Key
		}
		switch t := pair.Value.(type) {
		case *value.Map:
			if t.Len() > 0 {
				for sub := Flatten(t, fullKey).Oldest(); sub != nil; sub = sub.Next() {
					result.Set(sub.Key, sub.Value)
				}
				continue
			}
			result.Set(fullKey, pair.Value)
		case []any:
			result.Set(fullKey, formatList(t))
		default:
			result.Set(fullKey, pair.Value)
		}
	}
	return result
}

// formatList renders a list for table display, one item per line when
// there is more than one.
func formatList(items []any) string {
	if len(items) == 0 {
		return "[]"
	}
	if len(items) == 1 {
		return value.EncodeJSONInline(items)
	}
	rendered := make([]string, len(items))
	for i, item := range items {
		rendered[i] = value.EncodeJSONInline(item)
	}
	return "[\n  " + strings.Join(rendered, ",\n  ") + ",\n]"
}

// cellString renders one flattened value for a table cell.
func cellString(v any) string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return `""`
		}
		return t
	case *value.Map:
		return value.EncodeJSONInline(t)
	default:
		return value.Stringify(v)
	}
}

// Table renders a two- or three-column key/value[/source] table.
// terraform_source and unresolved are pulled out into a header block above
// the table; multiline values stay aligned under their first line.
func (f *Formatter) Table(data *value.Map, sources *value.Map) string {
	flat := Flatten(data, "")
	if flat.Len() == 0 {
		return "(empty)"
	}

	var headerLines []string
	for _, mk := range []string{"terraform_source", "unresolved"} {
		mv, ok := flat.Get(mk)
		if !ok {
			continue
		}
		flat.Delete(mk)
		rendered := cellString(mv)
		if f.Colour {
			valStyle := f.str
			if mk == "unresolved" {
				valStyle = f.unresolved
			}
			headerLines = append(headerLines, f.null.Render(mk+":")+" "+valStyle.Render(rendered))
		} else {
			headerLines = append(headerLines, mk+": "+rendered)
		}
	}

	if flat.Len() == 0 {
		if len(headerLines) > 0 {
			return strings.Join(headerLines, "\n")
		}
		return "(empty)"
	}

	// The inputs. prefix is redundant once flattened.
	stripped := value.NewMap()
	for pair := flat.Oldest(); pair != nil; pair = pair.Next() {
		key := strings.TrimPrefix(pair.Key, "inputs.")
		stripped.Set(key, pair.Value)
	}
	flat = stripped

	maxKey := 0
	maxVal := 0
	for pair := flat.Oldest(); pair != nil; pair = pair.Next() {
		if len(pair.Key) > maxKey {
			maxKey = len(pair.Key)
		}
		if l := firstLineLen(cellString(pair.Value)); l > maxVal {
			maxVal = l
		}
	}

	var lines []string
	if len(headerLines) > 0 {
		lines = append(lines, headerLines...)
		lines = append(lines, "")
	}

	hasSources := sources != nil && sources.Len() > 0
	hdr := pad("Key", maxKey) + "  " + pad("Value", maxVal)
	if hasSources {
		hdr += "  Source"
	}
	if f.Colour {
		hdr = f.header.Render(hdr)
	}
	lines = append(lines, hdr)
	sepWidth := maxKey + 2 + maxVal
	if hasSources {
		sepWidth += 8
	}
	lines = append(lines, strings.Repeat("-", sepWidth))

	indent := strings.Repeat(" ", maxKey+2)
	for pair := flat.Oldest(); pair != nil; pair = pair.Next() {
		valStr := cellString(pair.Value)
		keyCell := pad(pair.Key, maxKey)
		if f.Colour {
			keyCell = f.key.Render(keyCell)
		}
		src := ""
		if hasSources {
			src = lookupSource(sources, pair.Key)
		}
		srcSuffix := func(firstLineLen int) string {
			if src == "" {
				return ""
			}
			padWidth := maxVal - firstLineLen
			if padWidth < 0 {
				padWidth = 0
			}
			rendered := src
			if f.Colour {
				rendered = f.source.Render(src)
			}
			return strings.Repeat(" ", padWidth) + "  " + rendered
		}

		valLines := strings.Split(valStr, "\n")
		row := keyCell + "  " + f.cell(valLines[0]) + srcSuffix(len(valLines[0]))
		for _, vl := range valLines[1:] {
			row += "\n" + indent + f.cell(vl)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

// lookupSource finds the originating file for a flattened key, trying the
// full key, then its first and second path segments.
func lookupSource(sources *value.Map, key string) string {
	parts := strings.Split(key, ".")
	candidates := []string{key, parts[0]}
	if len(parts) > 1 {
		candidates = append(candidates, parts[1])
	}
	for _, c := range candidates {
		if v, ok := sources.Get(c); ok {
			if s, isStr := v.(string); isStr && s != "" {
				return filepath.Base(s)
			}
		}
	}
	return ""
}

func firstLineLen(s string) int {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return i
	}
	return len(s)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
