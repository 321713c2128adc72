package parser

import "strings"

// Assignment is one locals assignment with its expression kept as raw
// source text, ready for the expression evaluator.
type Assignment struct {
	Name string
	Expr string
}

// ParseAssignments reads an HCL file and returns every locals assignment in
// declaration order, with the right-hand side sliced verbatim from the
// source. Dynamic project.hcl files go through this path so the evaluator
// sees the original expression text.
func ParseAssignments(path string) ([]Assignment, error) {
	attrs, src, err := localsAttributes(path)
	if err != nil {
		return nil, err
	}

	assignments := make([]Assignment, 0, len(attrs))
	for _, attr := range attrs {
		rng := attr.Expr.Range()
		if rng.Start.Byte < 0 || rng.End.Byte > len(src) {
			continue
		}
		text := strings.TrimSpace(string(src[rng.Start.Byte:rng.End.Byte]))
		assignments = append(assignments, Assignment{Name: attr.Name, Expr: text})
	}
	return assignments, nil
}
