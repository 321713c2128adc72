// Package parser extracts locals from hierarchy HCL files using the native
// HCL2 parser. Only statically-knowable values are returned; anything
// carrying interpolation or function calls is left for the evaluator.
package parser

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/opsfactor/tgrender/internal/value"
)

// Keys in common.hcl that hold Terragrunt expressions resolvable only at
// run time; they are always filtered.
var commonSkipKeys = map[string]bool{
	"repo_root":      true,
	"common_root":    true,
	"templates_root": true,
}

var localsSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{{Type: "locals"}},
}

// ParseLocals reads an HCL file and returns the static values from its
// top-level locals blocks, in declaration order.
func ParseLocals(path string, isCommon bool) (*value.Map, error) {
	attrs, _, err := localsAttributes(path)
	if err != nil {
		return nil, err
	}

	result := value.NewMap()
	for _, attr := range attrs {
		if isCommon && commonSkipKeys[attr.Name] {
			continue
		}
		v, ok := staticValue(attr.Expr)
		if !ok {
			continue
		}
		result.Set(attr.Name, v)
	}
	return result, nil
}

// localsAttributes parses path and returns the attributes of its locals
// blocks sorted by source position, plus the raw file bytes.
func localsAttributes(path string) ([]*hclsyntax.Attribute, []byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	file, diags := hclparse.NewParser().ParseHCL(src, path)
	if file == nil || diags.HasErrors() {
		return nil, nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}

	content, _, _ := file.Body.PartialContent(localsSchema)
	if content == nil {
		return nil, src, nil
	}

	var attrs []*hclsyntax.Attribute
	for _, block := range content.Blocks {
		body, ok := block.Body.(*hclsyntax.Body)
		if !ok {
			continue
		}
		for _, attr := range body.Attributes {
			attrs = append(attrs, attr)
		}
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	return attrs, src, nil
}

// staticValue evaluates an expression that contains no references or
// function calls. The second result is false when the expression is
// dynamic.
func staticValue(expr hclsyntax.Expression) (any, bool) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return ctyScalar(e.Val)
	case *hclsyntax.TemplateExpr:
		if len(e.Parts) != 1 {
			return nil, false // interpolation
		}
		lit, ok := e.Parts[0].(*hclsyntax.LiteralValueExpr)
		if !ok {
			return nil, false
		}
		v, ok := ctyScalar(lit.Val)
		if !ok {
			return nil, false
		}
		if s, isStr := v.(string); isStr && looksLikeExpression(s) {
			return nil, false
		}
		return v, true
	case *hclsyntax.TupleConsExpr:
		list := []any{}
		for _, item := range e.Exprs {
			v, ok := staticValue(item)
			if !ok {
				return nil, false
			}
			list = append(list, v)
		}
		return list, true
	case *hclsyntax.ObjectConsExpr:
		m := value.NewMap()
		for _, item := range e.Items {
			keyVal, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() || keyVal.Type() != cty.String {
				return nil, false
			}
			v, ok := staticValue(item.ValueExpr)
			if !ok {
				return nil, false
			}
			m.Set(keyVal.AsString(), v)
		}
		return m, true
	case *hclsyntax.ParenthesesExpr:
		return staticValue(e.Expression)
	}
	return nil, false
}

// ctyScalar converts a scalar cty value to the renderer value model.
func ctyScalar(v cty.Value) (any, bool) {
	if v.IsNull() {
		return nil, true
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), true
	case cty.Bool:
		return v.True(), true
	case cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == 0 { // exact integer
			return i, true
		}
		f, _ := bf.Float64()
		return f, true
	}
	return nil, false
}

// looksLikeExpression reports whether a string value is really an HCL
// expression that escaped static parsing (interpolation or a call).
func looksLikeExpression(s string) bool {
	if strings.Contains(s, "${") {
		return true
	}
	for i, r := range s {
		if r == '(' {
			return i > 0 && isIdent(s[:i])
		}
		if !(r == '_' || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return false
}

func isIdent(s string) bool {
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return len(s) > 0
}
