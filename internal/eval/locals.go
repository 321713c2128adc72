package eval

import (
	"strings"

	"github.com/opsfactor/tgrender/internal/value"
)

// RawExpr marks an assignment whose value is raw HCL expression text (from
// the native parser) rather than a bridge-decoded value.
type RawExpr string

// maxPasses bounds the fixed-point loop; one extra finalising pass runs
// after it, so resolution terminates by construction.
const maxPasses = 10

// ResolveLocals flattens locals blocks from the bridge and resolves them to
// a fixed point. seed provides pre-resolved values (templates get hierarchy
// data this way instead of through read_terragrunt_config) and is never
// re-resolved.
func (c *Context) ResolveLocals(blocks []any, seed *value.Map) *value.Map {
	raw := value.NewMap()
	for _, b := range blocks {
		if m, ok := b.(*value.Map); ok {
			for pair := m.Oldest(); pair != nil; pair = pair.Next() {
				raw.Set(pair.Key, pair.Value)
			}
		}
	}
	return c.ResolveAssignments(raw, seed)
}

type pendingAssignment struct {
	name string
	raw  any
}

// ResolveAssignments runs the multi-pass resolution over name → raw value
// assignments. A raw value is either a bridge value or a RawExpr.
//
// Each pass defers assignments whose source still references an unresolved
// sibling (so try(local.x, null) cannot collapse before x is attempted),
// then evaluates the rest, reverting any attempt that produced a new
// unresolved marker. A final non-reverting pass records whatever remains.
func (c *Context) ResolveAssignments(raw *value.Map, seed *value.Map) *value.Map {
	resolved := value.NewMap()
	if seed != nil {
		for pair := seed.Oldest(); pair != nil; pair = pair.Next() {
			resolved.Set(pair.Key, pair.Value)
		}
	}

	var remaining []pendingAssignment
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		if _, seeded := resolved.Get(pair.Key); seeded {
			continue
		}
		remaining = append(remaining, pendingAssignment{name: pair.Key, raw: pair.Value})
	}

	for pass := 0; pass < maxPasses && len(remaining) > 0; pass++ {
		progress := false
		var still []pendingAssignment
		for _, a := range remaining {
			if refsPending(a, remaining) {
				still = append(still, a)
				continue
			}
			c.Locals = resolved
			save := c.saveUnresolved()
			result := c.resolveAssignment(a.raw)
			if value.HasUnresolved(result) {
				still = append(still, a)
				c.restoreUnresolved(save) // will retry next pass
			} else {
				resolved.Set(a.name, result)
				progress = true
			}
		}
		remaining = still
		if !progress {
			break
		}
	}

	for _, a := range remaining {
		c.Locals = resolved
		resolved.Set(a.name, c.resolveAssignment(a.raw))
	}
	c.Locals = resolved
	return resolved
}

// ResolveInputs flattens inputs blocks and resolves every value. A block
// that is itself an expression (inputs = merge(...)) is evaluated first and
// its resulting map adopted.
func (c *Context) ResolveInputs(blocks []any) *value.Map {
	raw := value.NewMap()
	for _, b := range blocks {
		switch t := b.(type) {
		case *value.Map:
			for pair := t.Oldest(); pair != nil; pair = pair.Next() {
				raw.Set(pair.Key, pair.Value)
			}
		case string:
			if m, ok := c.ResolveValue(t).(*value.Map); ok {
				for pair := m.Oldest(); pair != nil; pair = pair.Next() {
					raw.Set(pair.Key, pair.Value)
				}
			}
		}
	}

	out := value.NewMap()
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, c.ResolveValue(pair.Value))
	}
	return out
}

func (c *Context) resolveAssignment(raw any) any {
	if r, ok := raw.(RawExpr); ok {
		return c.ResolveExpr(string(r))
	}
	return c.ResolveValue(raw)
}

// refsPending reports whether a's source text references another
// still-unresolved assignment.
func refsPending(a pendingAssignment, remaining []pendingAssignment) bool {
	text := rawText(a.raw)
	for _, other := range remaining {
		if other.name == a.name {
			continue
		}
		if strings.Contains(text, "local."+other.name) {
			return true
		}
	}
	return false
}

func rawText(raw any) string {
	switch t := raw.(type) {
	case RawExpr:
		return string(t)
	case string:
		return t
	default:
		return value.EncodeJSON(raw)
	}
}
