// Package format renders results as JSON, YAML or a table, with optional
// ANSI colouring.
package format

import (
	"regexp"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/opsfactor/tgrender/internal/value"
)

// Formatter renders output. Colouring is purely cosmetic and fully off
// when Colour is false.
type Formatter struct {
	Colour bool

	key        lipgloss.Style
	unresKey   lipgloss.Style
	str        lipgloss.Style
	unresolved lipgloss.Style
	boolean    lipgloss.Style
	null       lipgloss.Style
	source     lipgloss.Style
	header     lipgloss.Style
}

// New creates a formatter. colour enables ANSI styling.
func New(colour bool) *Formatter {
	return &Formatter{
		Colour:     colour,
		key:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		unresKey:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		str:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		unresolved: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		boolean:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		null:       lipgloss.NewStyle().Faint(true),
		source:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		header:     lipgloss.NewStyle().Bold(true),
	}
}

// reUnresolvedValue spots values carrying an unresolved sentinel.
var reUnresolvedValue = regexp.MustCompile(`<[^>]+>|templatefile\(`)

// JSON renders pretty-printed two-space JSON, syntax-highlighted on TTYs.
func (f *Formatter) JSON(v any) string {
	text := value.EncodeJSON(v)
	if !f.Colour {
		return text
	}
	return f.colourJSON(text)
}

var reJSONToken = regexp.MustCompile(`"(?:[^"\\]|\\.)*"\s*:|"(?:[^"\\]|\\.)*"|\bnull\b|\btrue\b|\bfalse\b`)

func (f *Formatter) colourJSON(text string) string {
	return reJSONToken.ReplaceAllStringFunc(text, func(tok string) string {
		if strings.HasSuffix(tok, ":") {
			key := strings.TrimRight(tok[:len(tok)-1], " \t")
			style := f.key
			if key == `"unresolved"` {
				style = f.unresKey
			}
			return style.Render(key) + tok[len(key):]
		}
		switch {
		case strings.HasPrefix(tok, `"`):
			if reUnresolvedValue.MatchString(tok) {
				return f.unresolved.Render(tok)
			}
			return f.str.Render(tok)
		case tok == "null":
			return f.null.Render(tok)
		default:
			return f.boolean.Render(tok)
		}
	})
}

// YAML renders block-style YAML, keys in insertion order.
func (f *Formatter) YAML(v any) (string, error) {
	text, err := value.EncodeYAML(v)
	if err != nil {
		return "", err
	}
	if !f.Colour {
		return text, nil
	}
	return f.colourYAML(text), nil
}

var (
	reYAMLEntry = regexp.MustCompile(`^(\s*)([\w._-]+)(:)(.*)$`)
	reYAMLItem  = regexp.MustCompile(`^(\s*- )(.*)$`)
)

func (f *Formatter) colourYAML(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if m := reYAMLEntry.FindStringSubmatch(line); m != nil {
			indent, key, rest := m[1], m[2], strings.TrimSpace(m[4])
			keyStyle := f.key
			if key == "unresolved" {
				keyStyle = f.unresKey
			}
			coloured := indent + keyStyle.Render(key) + ":"
			switch {
			case rest == "" || rest == "''":
			case rest == "null" || rest == "~":
				coloured += " " + f.null.Render(rest)
			case rest == "true" || rest == "false":
				coloured += " " + f.boolean.Render(rest)
			case reUnresolvedValue.MatchString(rest):
				coloured += " " + f.unresolved.Render(rest)
			default:
				coloured += " " + f.str.Render(rest)
			}
			lines[i] = coloured
		} else if m := reYAMLItem.FindStringSubmatch(line); m != nil {
			item := m[2]
			style := f.str
			if reUnresolvedValue.MatchString(item) {
				style = f.unresolved
			}
			lines[i] = m[1] + style.Render(item)
		}
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) cell(valStr string) string {
	if !f.Colour {
		return valStr
	}
	switch valStr {
	case `""`, "[]", "null":
		return f.null.Render(valStr)
	case "true", "false":
		return f.boolean.Render(valStr)
	}
	if reUnresolvedValue.MatchString(valStr) {
		return f.unresolved.Render(valStr)
	}
	return f.str.Render(valStr)
}
