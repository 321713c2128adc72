package hierarchy

import (
	"path/filepath"
	"strings"

	"github.com/opsfactor/tgrender/internal/eval"
	"github.com/opsfactor/tgrender/internal/parser"
	"github.com/opsfactor/tgrender/internal/value"
)

// evaluateProject resolves the dynamic expressions project.hcl files
// typically carry. The evaluator is seeded so local.env_vars.* and
// local.account_vars.* resolve against the already-parsed hierarchy files,
// and get_terragrunt_dir() points at the project directory.
func evaluateProject(path, root string, envLocals, accountLocals *value.Map) (*value.Map, error) {
	assignments, err := parser.ParseAssignments(path)
	if err != nil {
		return nil, err
	}

	raw := value.NewMap()
	for _, a := range assignments {
		// read_terragrunt_config assignments reload files the merge
		// already covers; drop them.
		if strings.Contains(a.Expr, "read_terragrunt_config") {
			continue
		}
		raw.Set(a.Name, eval.RawExpr(a.Expr))
	}

	ctx := eval.NewContext(filepath.Dir(path), root)
	seed := value.NewMap()
	if envLocals == nil {
		envLocals = value.NewMap()
	}
	if accountLocals == nil {
		accountLocals = value.NewMap()
	}
	seed.Set("env_vars", envLocals)
	seed.Set("account_vars", accountLocals)

	resolved := ctx.ResolveAssignments(raw, seed)

	// Keep only cleanly-resolved project values: the seeds are scaffolding
	// and anything still carrying a marker is covered elsewhere.
	out := value.NewMap()
	for pair := resolved.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "env_vars" || pair.Key == "account_vars" {
			continue
		}
		if value.HasUnresolved(pair.Value) {
			continue
		}
		out.Set(pair.Key, pair.Value)
	}
	return out, nil
}
