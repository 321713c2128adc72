// Package eval resolves the HCL expression subset used by the hierarchy:
// interpolations, references, a slice of the Terraform function library,
// ternaries, comparisons and for expressions. Evaluation never fails;
// whatever cannot be resolved becomes an unresolved marker.
package eval

import (
	"github.com/opsfactor/tgrender/internal/value"
)

// maxDepth caps expression recursion so pathological nesting reports an
// unresolved marker instead of exhausting the stack.
const maxDepth = 1024

// ParseFileFunc parses an HCL file into its raw JSON-shaped tree. The
// renderer wires the external bridge in here; tests inject fakes.
type ParseFileFunc func(path string) (*value.Map, error)

// Context carries the mutable evaluation state for one render.
type Context struct {
	// BaseLocals is the namespace reachable as include.base.locals.*.
	BaseLocals *value.Map
	// ExtraIncludes maps exposed include names to their resolved locals.
	ExtraIncludes map[string]*value.Map
	// Deps resolves dependency.<name>.outputs.<key> references.
	Deps *Dependencies
	// Locals is the current file's locals context, swapped per file.
	Locals *value.Map
	// ResourcePath is the absolute resource directory.
	ResourcePath string
	// RepoRoot bounds upward file searches.
	RepoRoot string
	// ParseFile parses files for read_terragrunt_config.
	ParseFile ParseFileFunc

	unresolved     []string
	unresolvedSeen map[string]struct{}
	rtcCache       map[string]any
	depth          int
}

// NewContext creates an evaluation context rooted at the given resource
// directory.
func NewContext(resourcePath, repoRoot string) *Context {
	return &Context{
		BaseLocals:     value.NewMap(),
		ExtraIncludes:  make(map[string]*value.Map),
		Deps:           NewDependencies(),
		Locals:         value.NewMap(),
		ResourcePath:   resourcePath,
		RepoRoot:       repoRoot,
		unresolvedSeen: make(map[string]struct{}),
		rtcCache:       make(map[string]any),
	}
}

// AdoptCache shares another context's read_terragrunt_config memoisation,
// so a file is parsed at most once per render even when several contexts
// participate.
func (c *Context) AdoptCache(other *Context) {
	c.rtcCache = other.rtcCache
}

// SetLocals swaps the current locals context.
func (c *Context) SetLocals(m *value.Map) {
	c.Locals = m
}

// Unresolved returns the tokens collected so far, in first-seen order.
func (c *Context) Unresolved() []string {
	out := make([]string, len(c.unresolved))
	copy(out, c.unresolved)
	return out
}

// MarkUnresolved records a token, stripping the marker sentinel.
func (c *Context) MarkUnresolved(token string) {
	clean := value.MarkerText(token)
	if _, seen := c.unresolvedSeen[clean]; seen {
		return
	}
	c.unresolvedSeen[clean] = struct{}{}
	c.unresolved = append(c.unresolved, clean)
}

// saveUnresolved marks a rollback point for tentative evaluation.
func (c *Context) saveUnresolved() int {
	return len(c.unresolved)
}

// restoreUnresolved drops tokens recorded after the rollback point.
func (c *Context) restoreUnresolved(n int) {
	for _, token := range c.unresolved[n:] {
		delete(c.unresolvedSeen, token)
	}
	c.unresolved = c.unresolved[:n]
}
