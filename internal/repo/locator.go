// Package repo locates the repository root and the hierarchy files that
// configure a resource directory.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Hierarchy file names in merge order, outermost first.
const (
	AccountFile = "account.hcl"
	EnvFile     = "env.hcl"
	ProjectFile = "project.hcl"
	RegionFile  = "region.hcl"
	CommonFile  = "common.hcl"
)

// MergeOrder is the fixed order hierarchy files are merged in. Later files
// override earlier ones at the top level.
var MergeOrder = []string{AccountFile, EnvFile, ProjectFile, RegionFile, CommonFile}

// ErrNotARepo is returned when no ancestor of the start path contains a
// repository sentinel (root.hcl or _common/base.hcl).
var ErrNotARepo = errors.New("repository root not found")

// ErrMissingHierarchyFile is returned when a required hierarchy file
// (account.hcl or _common/common.hcl) is absent.
var ErrMissingHierarchyFile = errors.New("required hierarchy file not found")

// FindRoot walks upward from start until it finds a directory containing
// root.hcl or _common/base.hcl.
func FindRoot(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(current); err == nil && !info.IsDir() {
		current = filepath.Dir(current)
	}
	for {
		if isFile(filepath.Join(current, "root.hcl")) {
			return current, nil
		}
		if isFile(filepath.Join(current, "_common", "base.hcl")) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: walked up from %s", ErrNotARepo, start)
		}
		current = parent
	}
}

// InsideLive reports whether the resource path sits inside the live/
// subtree of the repository.
func InsideLive(resourcePath, root string) bool {
	rel, err := filepath.Rel(root, resourcePath)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == "live" || strings.HasPrefix(rel, "live/")
}

// Locator walks upward from a resource path to find each hierarchy file.
type Locator struct {
	// ResourcePath is the absolute path of the resource directory.
	ResourcePath string
	// Root is the absolute repository root.
	Root string
}

// NewLocator creates a locator for the given resource directory.
func NewLocator(resourcePath, root string) *Locator {
	return &Locator{ResourcePath: resourcePath, Root: root}
}

// FindInParentFolders mimics Terragrunt's function of the same name: walk
// upward from the resource directory to the repo root looking for filename.
func (l *Locator) FindInParentFolders(filename string) (string, bool) {
	current := l.ResourcePath
	for {
		candidate := filepath.Join(current, filename)
		if isFile(candidate) {
			return candidate, true
		}
		if current == l.Root {
			return "", false
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// HierarchyFile is one located hierarchy file. Path is empty when an
// optional file is absent.
type HierarchyFile struct {
	Name string
	Path string
}

// Locate returns the hierarchy files for the resource in merge order.
// account.hcl and _common/common.hcl are required; env.hcl, project.hcl and
// region.hcl are optional.
func (l *Locator) Locate() ([]HierarchyFile, error) {
	required := map[string]bool{AccountFile: true}

	var files []HierarchyFile
	for _, name := range []string{AccountFile, EnvFile, ProjectFile, RegionFile} {
		path, found := l.FindInParentFolders(name)
		if !found && required[name] {
			return nil, fmt.Errorf("%w: %s between %s and %s",
				ErrMissingHierarchyFile, name, l.ResourcePath, l.Root)
		}
		files = append(files, HierarchyFile{Name: name, Path: path})
	}

	common := filepath.Join(l.Root, "_common", CommonFile)
	if !isFile(common) {
		return nil, fmt.Errorf("%w: %s", ErrMissingHierarchyFile, common)
	}
	files = append(files, HierarchyFile{Name: CommonFile, Path: common})
	return files, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
