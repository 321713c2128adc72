package eval

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/opsfactor/tgrender/internal/value"
)

var (
	reInt        = regexp.MustCompile(`^-?\d+$`)
	reFloat      = regexp.MustCompile(`^-?\d+\.\d+$`)
	reInclude    = regexp.MustCompile(`^include\.(\w+)\.locals\.([\w.]+)(.*)$`)
	reDependency = regexp.MustCompile(`^dependency\.([\w-]+)\.outputs\.(\w+)(.*)$`)
	reLocal      = regexp.MustCompile(`^local\.([\w.]+)(.*)$`)
	reLocalRef   = regexp.MustCompile(`local\.\w+`)
	reIndex      = regexp.MustCompile(`^\[(.+?)\](.*)`)
	reDirChain   = regexp.MustCompile(`^((?:basename|dirname)\()+get_terragrunt_dir\(\)(\)+)$`)
	reDirFuncs   = regexp.MustCompile(`(basename|dirname)\(`)
	reForPrefix  = regexp.MustCompile(`^\s*for\s+`)
	reFuncCall   = regexp.MustCompile(`^\w+\(`)
	reInputsRef  = regexp.MustCompile(`^inputs\.\w+`)
	reBareIdent  = regexp.MustCompile(`^\w+$`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// ResolveValue recursively resolves a value from converted HCL output.
// Strings go through interpolation handling; containers resolve per entry.
func (c *Context) ResolveValue(v any) any {
	switch t := v.(type) {
	case string:
		return c.resolveString(t)
	case *value.Map:
		out := value.NewMap()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, c.ResolveValue(pair.Value))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = c.ResolveValue(item)
		}
		return out
	default:
		return v
	}
}

// resolveString handles interpolation. A string whose whole body is one
// ${...} block evaluates to the underlying value, preserving its type.
// Mixed interpolation stringifies each block; whatever still carries ${
// afterwards is recorded as unresolved.
func (c *Context) resolveString(s string) any {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		depth := 1
		inStr := false
		for i := 2; i < len(s); i++ {
			ch := s[i]
			if inStr && ch == '\\' {
				i++
				continue
			}
			if ch == '"' {
				inStr = !inStr
			} else if !inStr {
				switch ch {
				case '{':
					depth++
				case '}':
					depth--
					if depth == 0 {
						if i == len(s)-1 {
							return c.ResolveExpr(strings.TrimSpace(s[2 : len(s)-1]))
						}
						i = len(s) // closing brace before end: mixed
					}
				}
			}
		}
	}

	if !strings.Contains(s, "${") {
		return s
	}

	var b strings.Builder
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			b.WriteString(s[i:])
			break
		}
		start += i
		closeIdx := strings.IndexByte(s[start+2:], '}')
		if closeIdx < 0 {
			b.WriteString(s[i:])
			break
		}
		end := start + 2 + closeIdx
		inner := strings.TrimSpace(s[start+2 : end])
		b.WriteString(s[i:start])
		if inner == "" {
			b.WriteString(s[start : end+1])
		} else {
			val := c.ResolveExpr(inner)
			if sv, isStr := val.(string); isStr && strings.HasPrefix(sv, "<") {
				b.WriteString(s[start : end+1]) // unresolved: keep the block
			} else {
				b.WriteString(value.Stringify(val))
			}
		}
		i = end + 1
	}
	result := b.String()
	if strings.Contains(result, "${") {
		c.MarkUnresolved(result)
	}
	return result
}

// ResolveExpr resolves a single HCL expression string. It never fails:
// unsupported constructs come back as unresolved markers.
func (c *Context) ResolveExpr(expr string) any {
	if c.depth >= maxDepth {
		marker := value.Marker("recursion-limit")
		c.MarkUnresolved(marker)
		return marker
	}
	c.depth++
	defer func() { c.depth-- }()

	e := strings.TrimSpace(expr)

	// Literals
	switch e {
	case "{}":
		return value.NewMap()
	case "[]":
		return []any{}
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if reInt.MatchString(e) {
		if i, err := strconv.ParseInt(e, 10, 64); err == nil {
			return i
		}
	}
	if reFloat.MatchString(e) {
		if f, err := strconv.ParseFloat(e, 64); err == nil {
			return f
		}
	}
	if len(e) >= 2 && strings.HasPrefix(e, `"`) && strings.HasSuffix(e, `"`) {
		inner := e[1 : len(e)-1]
		if !strings.Contains(inner, "${") {
			return inner
		}
		return c.resolveString(inner)
	}

	// Compound literals come before substring-match patterns.
	if strings.HasPrefix(e, "{") && strings.HasSuffix(e, "}") {
		inner := strings.TrimSpace(e[1 : len(e)-1])
		if reForPrefix.MatchString(inner) {
			if result, ok := c.resolveFor(inner, true); ok {
				return result
			}
			marker := value.Marker("for-expression")
			c.MarkUnresolved(marker)
			return marker
		}
		return c.parseHCLMap(inner)
	}
	if strings.HasPrefix(e, "[") && strings.HasSuffix(e, "]") {
		inner := strings.TrimSpace(e[1 : len(e)-1])
		if inner == "" {
			return []any{}
		}
		if reForPrefix.MatchString(inner) {
			if result, ok := c.resolveFor(inner, false); ok {
				return result
			}
			marker := value.Marker("for-expression")
			c.MarkUnresolved(marker)
			return marker
		}
		parts := splitTopLevel(inner)
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, c.ResolveExpr(strings.TrimSpace(p)))
		}
		return out
	}

	// include.<name>.locals.<dotted>[index]
	if m := reInclude.FindStringSubmatch(e); m != nil {
		incName, dotted, suffix := m[1], m[2], strings.TrimSpace(m[3])
		var ctx *value.Map
		if incName == "base" {
			ctx = c.BaseLocals
		} else {
			ctx = c.ExtraIncludes[incName]
		}
		if ctx != nil {
			if val, handled := c.lookupWithSuffix(ctx, dotted, suffix); handled {
				return val
			}
			// operator suffix: fall through to ternary/comparison handling
		}
	}

	// dependency.<name>.outputs.<key>[suffix]
	if m := reDependency.FindStringSubmatch(e); m != nil {
		depName, outputKey, suffix := m[1], m[2], strings.TrimSpace(m[3])
		if suffix != "" {
			resolvedSuffix := reLocalRef.ReplaceAllStringFunc(suffix, func(ref string) string {
				return value.Stringify(c.ResolveExpr(ref))
			})
			return c.Deps.Token(depName, outputKey+resolvedSuffix)
		}
		return c.Deps.Token(depName, outputKey)
	}

	// local.<dotted>[index]
	if m := reLocal.FindStringSubmatch(e); m != nil {
		dotted, suffix := m[1], strings.TrimSpace(m[2])
		if val, handled := c.lookupWithSuffix(c.Locals, dotted, suffix); handled {
			return val
		}
	}

	// Context accessors
	if e == "basename(get_terragrunt_dir())" {
		return filepath.Base(c.ResourcePath)
	}
	if reDirChain.MatchString(e) {
		path := c.ResourcePath
		funcs := reDirFuncs.FindAllStringSubmatch(e, -1)
		for i := len(funcs) - 1; i >= 0; i-- {
			switch funcs[i][1] {
			case "dirname":
				path = filepath.Dir(path)
			case "basename":
				path = filepath.Base(path)
			}
		}
		return path
	}
	if e == "get_terragrunt_dir()" {
		return c.ResourcePath
	}
	if args, ok := callArgs(e, "get_env"); ok {
		parts := splitTopLevel(args)
		if len(parts) >= 2 {
			// Offline evaluator: the environment is never consulted,
			// the default always wins.
			return c.ResolveExpr(strings.TrimSpace(parts[1]))
		}
		return ""
	}

	// Function calls
	if args, ok := callArgs(e, "try"); ok {
		return c.resolveTry(args)
	}
	if args, ok := callArgs(e, "merge"); ok {
		return c.resolveMerge(args)
	}
	if args, ok := callArgs(e, "format"); ok {
		if out, ok := c.resolveFormat(args); ok {
			return out
		}
	}
	if args, ok := callArgs(e, "lookup"); ok {
		return c.resolveLookup(args)
	}
	if args, ok := callArgs(e, "replace"); ok {
		return c.resolveReplace(args)
	}
	if args, ok := callArgs(e, "trimsuffix"); ok {
		return c.resolveTrimsuffix(args)
	}
	if args, ok := callArgs(e, "concat"); ok {
		return c.resolveConcat(args)
	}
	if args, ok := callArgs(e, "distinct"); ok {
		return c.resolveDistinct(args)
	}
	if args, ok := callArgs(e, "flatten"); ok {
		return c.resolveFlatten(args)
	}
	if args, ok := callArgs(e, "keys"); ok {
		return c.resolveKeys(args)
	}
	if args, ok := callArgs(e, "values"); ok {
		return c.resolveValues(args)
	}
	if args, ok := callArgs(e, "sort"); ok {
		return c.resolveSort(args)
	}
	if args, ok := callArgs(e, "contains"); ok {
		return c.resolveContains(args)
	}
	if args, ok := callArgs(e, "index"); ok {
		return c.resolveIndex(args)
	}
	if args, ok := callArgs(e, "tostring"); ok {
		return value.Stringify(c.ResolveExpr(args))
	}
	for _, fn := range []string{"startswith", "endswith"} {
		if args, ok := callArgs(e, fn); ok {
			if out, ok := c.resolveAffix(fn, args); ok {
				return out
			}
		}
	}
	for _, fn := range []string{"lower", "upper", "title"} {
		if args, ok := callArgs(e, fn); ok {
			return c.resolveCase(fn, args)
		}
	}
	if args, ok := callArgs(e, "split"); ok {
		return c.resolveSplit(args)
	}
	if args, ok := callArgs(e, "substr"); ok {
		return c.resolveSubstr(args)
	}

	if strings.HasPrefix(e, "templatefile(") {
		marker := value.Marker("templatefile(...)")
		c.MarkUnresolved(marker)
		return marker
	}
	if strings.HasPrefix(e, "read_terragrunt_config(") {
		return c.resolveReadTerragruntConfig(e)
	}

	// Standalone for expression (outside brackets)
	if reForPrefix.MatchString(e) {
		marker := value.Marker("for-expression")
		c.MarkUnresolved(marker)
		return marker
	}

	// Ternary, depth-aware and lowest precedence
	if qIdx := findTokenDepth0(e, " ? "); qIdx >= 0 {
		rest := e[qIdx+3:]
		if cIdx := findTokenDepth0(rest, " : "); cIdx >= 0 {
			cond := strings.TrimSpace(e[:qIdx])
			tExpr := strings.TrimSpace(rest[:cIdx])
			fExpr := strings.TrimSpace(rest[cIdx+3:])
			return c.resolveTernary(cond, tExpr, fExpr)
		}
	}

	// Comparisons: no guessing when either side is unresolved
	for _, op := range []string{" != ", " == "} {
		opIdx := findTokenDepth0(e, op)
		if opIdx < 0 {
			continue
		}
		lhs := c.ResolveExpr(strings.TrimSpace(e[:opIdx]))
		rhs := c.ResolveExpr(strings.TrimSpace(e[opIdx+len(op):]))
		if !isMarkerValue(lhs) && !isMarkerValue(rhs) {
			if op == " != " {
				return !value.Equal(lhs, rhs)
			}
			return value.Equal(lhs, rhs)
		}
		break
	}

	// Function calls we cannot resolve
	if reFuncCall.MatchString(e) {
		short := reSpaces.ReplaceAllString(e, " ")
		if len(short) > 80 {
			short = short[:80]
		}
		marker := value.Marker(short)
		c.MarkUnresolved(marker)
		return marker
	}

	// inputs.X is a Terragrunt self-reference, unresolvable statically
	if reInputsRef.MatchString(e) {
		marker := value.Marker(e)
		c.MarkUnresolved(marker)
		return marker
	}

	// Bare identifier: for-expression binding
	if reBareIdent.MatchString(e) {
		if v, ok := c.Locals.Get(e); ok {
			return v
		}
	}

	return e
}

// lookupWithSuffix navigates a dotted reference with an optional [index]
// suffix. handled is false when the suffix holds operators that outer
// handlers (ternary, comparison) must take over.
func (c *Context) lookupWithSuffix(ctx *value.Map, dotted, suffix string) (any, bool) {
	if suffix != "" && !strings.HasPrefix(suffix, "[") {
		return nil, false
	}
	val, ok := value.Lookup(ctx, dotted)
	if !ok {
		val = value.Marker("unresolved: " + dotted)
	}
	if suffix != "" {
		if m := reIndex.FindStringSubmatch(suffix); m != nil {
			idxVal := c.ResolveExpr(strings.TrimSpace(m[1]))
			switch container := val.(type) {
			case []any:
				if i, isInt := idxVal.(int64); isInt && i >= 0 && int(i) < len(container) {
					return container[i], true
				}
			case *value.Map:
				if key, isStr := idxVal.(string); isStr {
					if element, present := container.Get(key); present {
						return element, true
					}
				}
			}
		}
	}
	return val, true
}

// callArgs matches a function call expression name(...) spanning the whole
// string and returns the raw argument text.
func callArgs(e, name string) (string, bool) {
	prefix := name + "("
	if strings.HasPrefix(e, prefix) && strings.HasSuffix(e, ")") && len(e) > len(prefix) {
		return strings.TrimSpace(e[len(prefix) : len(e)-1]), true
	}
	return "", false
}

// isMarkerValue reports whether a resolved value is an unresolved marker.
func isMarkerValue(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "<")
}

// parseHCLMap parses an HCL object body (key = value per line, multi-line
// values tracked by bracket depth, comma-separated pairs split).
func (c *Context) parseHCLMap(inner string) *value.Map {
	result := value.NewMap()

	rawLines := strings.Split(inner, "\n")
	var lines []string
	for _, rawLine := range rawLines {
		stripped := strings.TrimSpace(rawLine)
		if strings.Contains(stripped, ", ") && strings.Contains(stripped, "=") {
			parts := splitTopLevel(stripped)
			if len(parts) > 1 && allAssignments(parts) {
				lines = append(lines, parts...)
				continue
			}
		}
		lines = append(lines, rawLine)
	}

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			i++
			continue
		}
		m := reMapEntry.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}
		key := m[1]
		valRaw := strings.TrimSpace(m[2])
		if strings.HasSuffix(valRaw, ",") {
			valRaw = strings.TrimRight(valRaw[:len(valRaw)-1], " \t")
		}
		depth, inStr := scanDepth(valRaw, 0, false)
		for depth > 0 && i+1 < len(lines) {
			i++
			next := lines[i]
			valRaw += "\n" + next
			depth, inStr = scanDepth(next, depth, inStr)
		}
		valRaw = strings.TrimSpace(valRaw)
		if valRaw == "" {
			result.Set(key, "")
		} else {
			result.Set(key, c.ResolveExpr(valRaw))
		}
		i++
	}
	return result
}

var (
	reMapEntry   = regexp.MustCompile(`^([\w-]+)\s*=\s*(.*)`)
	reAssignment = regexp.MustCompile(`^\s*\w+\s*=`)
)

func allAssignments(parts []string) bool {
	for _, p := range parts {
		if !reAssignment.MatchString(p) {
			return false
		}
	}
	return true
}

// scanDepth advances bracket depth and in-string state across one line.
func scanDepth(line string, depth int, inStr bool) (int, bool) {
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch == '"' && (i == 0 || line[i-1] != '\\') {
			inStr = !inStr
		} else if !inStr {
			switch ch {
			case '(', '{', '[':
				depth++
			case ')', '}', ']':
				depth--
			}
		}
	}
	return depth, inStr
}
