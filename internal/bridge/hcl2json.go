// Package bridge shells out to the hcl2json binary for full HCL2 grammar
// support. The static parser covers hierarchy files; everything else
// (terragrunt.hcl, templates, read_terragrunt_config targets) goes through
// here.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/opsfactor/tgrender/internal/value"
	"github.com/opsfactor/tgrender/pkg/log"
)

// DefaultTool is the converter binary looked up on PATH.
const DefaultTool = "hcl2json"

// ErrToolUnavailable is returned when the converter binary is not on PATH.
var ErrToolUnavailable = errors.New("hcl2json not found on PATH (install: go install github.com/tmccombs/hcl2json@latest)")

// ErrToolFailed is returned when the converter exits non-zero.
var ErrToolFailed = errors.New("hcl2json failed")

// Runner invokes the external HCL-to-JSON converter.
type Runner struct {
	// Tool is the binary name or path. Defaults to DefaultTool.
	Tool string
	// Timeout bounds a single conversion. Defaults to 30s.
	Timeout time.Duration
}

// New creates a Runner with defaults.
func New() *Runner {
	return &Runner{Tool: DefaultTool, Timeout: 30 * time.Second}
}

// Available reports whether the converter binary can be found.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.Tool)
	return err == nil
}

// Parse runs the converter in -simplify mode on path and returns the
// decoded JSON tree with object key order preserved.
func (r *Runner) Parse(path string) (*value.Map, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	log.WithField("file", path).Debug("hcl2json parse")

	cmd := exec.CommandContext(ctx, r.Tool, "-simplify", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrToolUnavailable
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return nil, ErrToolUnavailable
		}
		return nil, fmt.Errorf("%w on %s: %s", ErrToolFailed, path, strings.TrimSpace(stderr.String()))
	}

	decoded, err := value.DecodeJSON(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w on %s: invalid JSON output: %v", ErrToolFailed, path, err)
	}
	tree, ok := decoded.(*value.Map)
	if !ok {
		return nil, fmt.Errorf("%w on %s: output is not a JSON object", ErrToolFailed, path)
	}
	return tree, nil
}

// Blocks is the normalised view of a converted terragrunt file. The
// converter inconsistently yields singletons, so terraform, locals and
// inputs are forced into lists here.
type Blocks struct {
	Terraform  []any
	Locals     []any
	Inputs     []any
	Include    *value.Map
	Dependency *value.Map
}

// ExtractBlocks normalises the converter output for the renderer.
func ExtractBlocks(parsed *value.Map) *Blocks {
	return &Blocks{
		Terraform:  asList(parsed, "terraform"),
		Locals:     asList(parsed, "locals"),
		Inputs:     asList(parsed, "inputs"),
		Include:    asMap(parsed, "include"),
		Dependency: asMap(parsed, "dependency"),
	}
}

func asList(parsed *value.Map, key string) []any {
	v, ok := parsed.Get(key)
	if !ok {
		return nil
	}
	if list, isList := v.([]any); isList {
		return list
	}
	return []any{v}
}

func asMap(parsed *value.Map, key string) *value.Map {
	v, ok := parsed.Get(key)
	if !ok {
		return value.NewMap()
	}
	if m, isMap := v.(*value.Map); isMap {
		return m
	}
	return value.NewMap()
}
