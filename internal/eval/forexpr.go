package eval

import (
	"regexp"
	"strings"

	"github.com/opsfactor/tgrender/internal/value"
)

var reForVars = regexp.MustCompile(`^for\s+([\w,\s]+)\s+in\s+`)

// resolveFor evaluates a for expression body (brackets already stripped).
// Map form: for V in IT : KEY => VAL. List form: for V in IT : VAL [if COND].
// ok is false when the expression does not fit the supported shape.
func (c *Context) resolveFor(inner string, isMap bool) (any, bool) {
	inner = strings.TrimSpace(inner)
	m := reForVars.FindStringSubmatch(inner)
	if m == nil {
		return nil, false
	}
	var vars []string
	for v := range strings.SplitSeq(m[1], ",") {
		vars = append(vars, strings.TrimSpace(v))
	}
	if len(vars) == 0 || vars[0] == "" {
		return nil, false
	}
	rest := inner[len(m[0]):]

	colonIdx := findForColon(rest)
	if colonIdx < 0 {
		return nil, false
	}
	iterableExpr := strings.TrimSpace(rest[:colonIdx])
	body := strings.TrimSpace(rest[colonIdx+2:])

	iterable := c.ResolveExpr(iterableExpr)

	saved := c.Locals
	loopLocals := value.NewMap()
	for pair := saved.Oldest(); pair != nil; pair = pair.Next() {
		loopLocals.Set(pair.Key, pair.Value)
	}
	c.Locals = loopLocals
	defer func() { c.Locals = saved }()

	if isMap {
		arrowIdx := findTokenDepth0(body, " => ")
		sepLen := 4
		if arrowIdx < 0 {
			arrowIdx = findTokenDepth0(body, "=>")
			sepLen = 2
		}
		if arrowIdx < 0 {
			return nil, false
		}
		keyExpr := strings.TrimSpace(body[:arrowIdx])
		valExpr := strings.TrimSpace(body[arrowIdx+sepLen:])

		result := value.NewMap()
		bind := func(item any, mapVal any, haveVal bool) {
			loopLocals.Set(vars[0], item)
			if len(vars) > 1 && haveVal {
				loopLocals.Set(vars[1], mapVal)
			}
			key := c.ResolveExpr(keyExpr)
			if keyStr, isStr := key.(string); isStr {
				result.Set(keyStr, c.ResolveExpr(valExpr))
			}
		}
		switch it := iterable.(type) {
		case []any:
			for _, item := range it {
				bind(item, nil, false)
			}
		case *value.Map:
			for pair := it.Oldest(); pair != nil; pair = pair.Next() {
				bind(pair.Key, pair.Value, true)
			}
		default:
			return nil, false
		}
		return result, true
	}

	bodyExpr := body
	condExpr := ""
	if ifIdx := findTokenDepth0(body, " if "); ifIdx >= 0 {
		bodyExpr = strings.TrimSpace(body[:ifIdx])
		condExpr = strings.TrimSpace(body[ifIdx+4:])
	}

	result := []any{}
	emit := func() {
		if condExpr != "" {
			if cond, isBool := c.ResolveExpr(condExpr).(bool); isBool && !cond {
				return
			}
		}
		result = append(result, c.ResolveExpr(bodyExpr))
	}
	switch it := iterable.(type) {
	case []any:
		for _, item := range it {
			loopLocals.Set(vars[0], item)
			emit()
		}
	case *value.Map:
		for pair := it.Oldest(); pair != nil; pair = pair.Next() {
			loopLocals.Set(vars[0], pair.Key)
			if len(vars) > 1 {
				loopLocals.Set(vars[1], pair.Value)
			}
			emit()
		}
	default:
		return nil, false
	}
	return result, true
}
