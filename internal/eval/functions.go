package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/opsfactor/tgrender/internal/value"
)

// resolveTry evaluates arguments in order and returns the first that
// resolves cleanly. Markers recorded by failing arguments are reverted; if
// everything fails the last argument's result and markers are kept.
func (c *Context) resolveTry(args string) any {
	parts := splitTopLevel(args)
	if len(parts) == 0 {
		return value.Marker("try(" + args + ")")
	}
	for _, part := range parts {
		save := c.saveUnresolved()
		val := c.ResolveExpr(strings.TrimSpace(part))
		if s, isStr := val.(string); isStr && (strings.HasPrefix(s, "<") || strings.Contains(s, "${")) {
			c.restoreUnresolved(save)
			continue
		}
		return val
	}
	return c.ResolveExpr(strings.TrimSpace(parts[len(parts)-1]))
}

// resolveMerge merges maps left to right, skipping unresolvable arguments.
func (c *Context) resolveMerge(args string) any {
	parts := splitTopLevel(args)
	result := value.NewMap()
	for _, part := range parts {
		val := c.ResolveExpr(strings.TrimSpace(part))
		if m, isMap := val.(*value.Map); isMap {
			for pair := m.Oldest(); pair != nil; pair = pair.Next() {
				result.Set(pair.Key, pair.Value)
			}
		}
	}
	if result.Len() == 0 {
		short := args
		if len(short) > 40 {
			short = short[:40]
		}
		return value.Marker("merge(" + short + ")")
	}
	return result
}

// resolveFormat implements Terraform's %-style format. ok is false when
// the verbs and arguments do not line up.
func (c *Context) resolveFormat(args string) (string, bool) {
	parts := splitTopLevel(args)
	if len(parts) == 0 {
		return "", false
	}
	fmtVal := c.ResolveExpr(strings.TrimSpace(parts[0]))
	fmtStr, isStr := fmtVal.(string)
	if !isStr {
		return "", false
	}
	fmtArgs := make([]any, 0, len(parts)-1)
	for _, p := range parts[1:] {
		fmtArgs = append(fmtArgs, c.ResolveExpr(strings.TrimSpace(p)))
	}
	out := fmt.Sprintf(fmtStr, fmtArgs...)
	if strings.Contains(out, "%!") {
		return "", false
	}
	return out, true
}

// resolveLookup implements lookup(map, key, default).
func (c *Context) resolveLookup(args string) any {
	parts := splitTopLevel(args)
	if len(parts) < 2 {
		return value.Marker("lookup(" + args + ")")
	}
	mapVal := c.ResolveExpr(strings.TrimSpace(parts[0]))
	keyVal := c.ResolveExpr(strings.TrimSpace(parts[1]))
	var defaultVal any
	if len(parts) > 2 {
		defaultVal = c.ResolveExpr(strings.TrimSpace(parts[2]))
	}
	key, _ := keyVal.(string)
	key = strings.Trim(key, `"`)
	if m, isMap := mapVal.(*value.Map); isMap {
		if v, ok := m.Get(key); ok {
			return v
		}
		return defaultVal
	}
	if defaultVal != nil {
		return defaultVal
	}
	return value.Marker("lookup(...)")
}

func (c *Context) resolveReplace(args string) any {
	parts := splitTopLevel(args)
	if len(parts) != 3 {
		return value.Marker("replace(" + args + ")")
	}
	s := c.ResolveExpr(strings.TrimSpace(parts[0]))
	old := c.ResolveExpr(strings.TrimSpace(parts[1]))
	newVal := c.ResolveExpr(strings.TrimSpace(parts[2]))
	sStr, ok1 := s.(string)
	oldStr, ok2 := old.(string)
	newStr, ok3 := newVal.(string)
	if ok1 && ok2 && ok3 {
		return strings.ReplaceAll(sStr, strings.Trim(oldStr, `"`), strings.Trim(newStr, `"`))
	}
	return value.Marker("replace(...)")
}

func (c *Context) resolveTrimsuffix(args string) any {
	parts := splitTopLevel(args)
	if len(parts) != 2 {
		return value.Marker("trimsuffix(" + args + ")")
	}
	s := c.ResolveExpr(strings.TrimSpace(parts[0]))
	suffix := c.ResolveExpr(strings.TrimSpace(parts[1]))
	sStr, ok1 := s.(string)
	sufStr, ok2 := suffix.(string)
	if ok1 && ok2 {
		return strings.TrimSuffix(sStr, strings.Trim(sufStr, `"`))
	}
	return value.Marker("trimsuffix(...)")
}

// resolveConcat concatenates lists; scalar arguments are appended as-is.
func (c *Context) resolveConcat(args string) any {
	parts := splitTopLevel(args)
	result := []any{}
	allResolved := true
	for _, part := range parts {
		val := c.ResolveExpr(strings.TrimSpace(part))
		switch t := val.(type) {
		case []any:
			result = append(result, t...)
		case string:
			if strings.HasPrefix(t, "<") {
				allResolved = false
			} else {
				result = append(result, t)
			}
		default:
			result = append(result, val)
		}
	}
	if !allResolved {
		short := reSpaces.ReplaceAllString(args, " ")
		if len(short) > 80 {
			short = short[:80]
		}
		marker := value.Marker("concat(" + short + ")")
		c.MarkUnresolved(marker)
		return marker
	}
	return result
}

func (c *Context) resolveDistinct(args string) any {
	val := c.ResolveExpr(args)
	list, isList := val.([]any)
	if !isList {
		return val
	}
	var seen []any
	for _, item := range list {
		dup := false
		for _, s := range seen {
			if value.Equal(item, s) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, item)
		}
	}
	if seen == nil {
		seen = []any{}
	}
	return seen
}

func (c *Context) resolveFlatten(args string) any {
	val := c.ResolveExpr(args)
	list, isList := val.([]any)
	if !isList {
		return val
	}
	flat := []any{}
	for _, item := range list {
		if sub, isSub := item.([]any); isSub {
			flat = append(flat, sub...)
		} else {
			flat = append(flat, item)
		}
	}
	return flat
}

func (c *Context) resolveKeys(args string) any {
	val := c.ResolveExpr(args)
	if m, isMap := val.(*value.Map); isMap {
		keys := make([]any, 0, m.Len())
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
		}
		return keys
	}
	return value.Marker("keys(...)")
}

func (c *Context) resolveValues(args string) any {
	val := c.ResolveExpr(args)
	if m, isMap := val.(*value.Map); isMap {
		vals := make([]any, 0, m.Len())
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			vals = append(vals, pair.Value)
		}
		return vals
	}
	return value.Marker("values(...)")
}

// resolveSort sorts homogeneous string or number lists; a mixed list is
// returned untouched and a non-list argument yields a sort(...) marker.
func (c *Context) resolveSort(args string) any {
	val := c.ResolveExpr(args)
	list, isList := val.([]any)
	if !isList {
		return value.Marker("sort(...)")
	}
	allStrings := true
	allNumbers := true
	for _, item := range list {
		if _, ok := item.(string); !ok {
			allStrings = false
		}
		switch item.(type) {
		case int64, float64:
		default:
			allNumbers = false
		}
	}
	out := make([]any, len(list))
	copy(out, list)
	switch {
	case allStrings:
		sort.Slice(out, func(i, j int) bool { return out[i].(string) < out[j].(string) })
	case allNumbers:
		sort.Slice(out, func(i, j int) bool { return numValue(out[i]) < numValue(out[j]) })
	default:
		return list
	}
	return out
}

func numValue(v any) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case float64:
		return t
	}
	return 0
}

func (c *Context) resolveContains(args string) any {
	parts := splitTopLevel(args)
	if len(parts) != 2 {
		return value.Marker("contains(...)")
	}
	collection := c.ResolveExpr(strings.TrimSpace(parts[0]))
	target := c.ResolveExpr(strings.TrimSpace(parts[1]))
	switch t := collection.(type) {
	case []any:
		for _, item := range t {
			if value.Equal(item, target) {
				return true
			}
		}
		return false
	case *value.Map:
		if key, isStr := target.(string); isStr {
			_, ok := t.Get(key)
			return ok
		}
		return false
	}
	return value.Marker("contains(...)")
}

func (c *Context) resolveIndex(args string) any {
	parts := splitTopLevel(args)
	if len(parts) == 2 {
		collection := c.ResolveExpr(strings.TrimSpace(parts[0]))
		target := c.ResolveExpr(strings.TrimSpace(parts[1]))
		if list, isList := collection.([]any); isList {
			for i, item := range list {
				if value.Equal(item, target) {
					return int64(i)
				}
			}
		}
	}
	return value.Marker("index(...)")
}

func (c *Context) resolveAffix(fn, args string) (any, bool) {
	parts := splitTopLevel(args)
	if len(parts) != 2 {
		return nil, false
	}
	s := c.ResolveExpr(strings.TrimSpace(parts[0]))
	affix := c.ResolveExpr(strings.TrimSpace(parts[1]))
	sStr, ok1 := s.(string)
	affixStr, ok2 := affix.(string)
	if !ok1 || !ok2 {
		return nil, false
	}
	if fn == "startswith" {
		return strings.HasPrefix(sStr, affixStr), true
	}
	return strings.HasSuffix(sStr, affixStr), true
}

func (c *Context) resolveCase(fn, args string) any {
	arg := c.ResolveExpr(args)
	if s, isStr := arg.(string); isStr && !strings.HasPrefix(s, "<") {
		switch fn {
		case "lower":
			return strings.ToLower(s)
		case "upper":
			return strings.ToUpper(s)
		case "title":
			return titleCase(s)
		}
	}
	return value.Marker(fmt.Sprintf("%s(%v)", fn, arg))
}

// titleCase upper-cases the first letter of every word and lower-cases the
// rest, treating any non-letter as a word boundary.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

func (c *Context) resolveSplit(args string) any {
	parts := splitTopLevel(args)
	if len(parts) == 2 {
		sep := c.ResolveExpr(strings.TrimSpace(parts[0]))
		val := c.ResolveExpr(strings.TrimSpace(parts[1]))
		sepStr, ok1 := sep.(string)
		valStr, ok2 := val.(string)
		if ok1 && ok2 && !strings.HasPrefix(valStr, "<") {
			pieces := strings.Split(valStr, sepStr)
			out := make([]any, len(pieces))
			for i, p := range pieces {
				out[i] = p
			}
			return out
		}
	}
	return value.Marker("split(...)")
}

// resolveSubstr implements substr(string, offset, length); a negative
// offset counts from the end of the string.
func (c *Context) resolveSubstr(args string) any {
	parts := splitTopLevel(args)
	if len(parts) == 3 {
		val := c.ResolveExpr(strings.TrimSpace(parts[0]))
		offsetVal := c.ResolveExpr(strings.TrimSpace(parts[1]))
		lengthVal := c.ResolveExpr(strings.TrimSpace(parts[2]))
		valStr, isStr := val.(string)
		offset, ok1 := asInt(offsetVal)
		length, ok2 := asInt(lengthVal)
		if isStr && !strings.HasPrefix(valStr, "<") && ok1 && ok2 {
			runes := []rune(valStr)
			if offset < 0 {
				offset = max(0, len(runes)+offset)
			}
			if offset > len(runes) {
				offset = len(runes)
			}
			end := offset + length
			if end < offset {
				end = offset
			}
			if end > len(runes) {
				end = len(runes)
			}
			return string(runes[offset:end])
		}
	}
	return value.Marker("substr(...)")
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}

// resolveTernary picks a branch from cond ? t : f. Boolean conditions are
// authoritative; resolved strings use truthiness; anything else resolves
// the true branch as a best effort.
func (c *Context) resolveTernary(cond, tExpr, fExpr string) any {
	condVal := c.ResolveExpr(cond)
	switch t := condVal.(type) {
	case bool:
		if t {
			return c.ResolveExpr(tExpr)
		}
		return c.ResolveExpr(fExpr)
	case string:
		if !strings.HasPrefix(t, "<") {
			if t != "" {
				return c.ResolveExpr(tExpr)
			}
			return c.ResolveExpr(fExpr)
		}
	}
	return c.ResolveExpr(tExpr)
}

var (
	reFindInParent = regexp.MustCompile(`find_in_parent_folders\("([^"]+)"\)`)
	reRTCPath      = regexp.MustCompile(`read_terragrunt_config\(\s*"([^"]+)"\s*\)`)
)

// resolveReadTerragruntConfig parses a referenced file through the bridge,
// resolves its locals, and memoises the result per absolute path.
func (c *Context) resolveReadTerragruntConfig(e string) any {
	marker := value.Marker("read_terragrunt_config(...)")

	var resolved string
	if m := reFindInParent.FindStringSubmatch(e); m != nil {
		path, ok := c.findInParents(m[1])
		if !ok {
			c.MarkUnresolved(marker)
			return marker
		}
		resolved = path
	} else if m := reRTCPath.FindStringSubmatch(e); m != nil {
		rawPath := m[1]
		if strings.Contains(rawPath, "${") {
			rv := c.resolveString(rawPath)
			s, isStr := rv.(string)
			if !isStr || strings.Contains(s, "${") || strings.HasPrefix(s, "<") {
				c.MarkUnresolved(marker)
				return marker
			}
			rawPath = s
		}
		path := rawPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.ResourcePath, path)
		}
		abs, err := filepath.Abs(path)
		if err != nil || !isFile(abs) {
			c.MarkUnresolved(marker)
			return marker
		}
		resolved = abs
	} else {
		c.MarkUnresolved(marker)
		return marker
	}

	if cached, ok := c.rtcCache[resolved]; ok {
		return cached
	}
	if c.ParseFile == nil {
		c.MarkUnresolved(marker)
		return marker
	}
	parsed, err := c.ParseFile(resolved)
	if err != nil {
		c.MarkUnresolved(marker)
		return marker
	}

	flat := value.NewMap()
	switch localsRaw := mustGet(parsed, "locals").(type) {
	case []any:
		for _, block := range localsRaw {
			if m, isMap := block.(*value.Map); isMap {
				for pair := m.Oldest(); pair != nil; pair = pair.Next() {
					flat.Set(pair.Key, pair.Value)
				}
			}
		}
	case *value.Map:
		for pair := localsRaw.Oldest(); pair != nil; pair = pair.Next() {
			flat.Set(pair.Key, pair.Value)
		}
	}

	resolvedLocals := value.NewMap()
	for pair := flat.Oldest(); pair != nil; pair = pair.Next() {
		resolvedLocals.Set(pair.Key, c.ResolveValue(pair.Value))
	}
	result := value.NewMap()
	result.Set("locals", resolvedLocals)
	c.rtcCache[resolved] = result
	return result
}

// findInParents walks up from the resource directory to the repo root
// looking for filename.
func (c *Context) findInParents(filename string) (string, bool) {
	current := c.ResourcePath
	for {
		candidate := filepath.Join(current, filename)
		if isFile(candidate) {
			return candidate, true
		}
		if current == c.RepoRoot {
			return "", false
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
