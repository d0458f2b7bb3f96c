// Package discovery locates unit descriptor files beneath a root directory
// and derives the group key and logical name each one registers under.
package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// FunctionSuffix marks background-function unit descriptors.
	FunctionSuffix = ".function.yaml"
	// EndpointSuffix marks REST-endpoint unit descriptors.
	EndpointSuffix = ".endpoint.yaml"
)

// Directories never descended into during traversal.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"testdata":     {},
}

// Unit is one discovered descriptor file.
type Unit struct {
	Path  string // path to the descriptor, as produced by the walk
	Group string // deployment group key derived from the directory layout
	Name  string // logical name: file name minus the suffix marker
}

// Find walks root and returns every file whose name ends in suffix,
// sorted by path. The underlying walk is already lexical per directory;
// the final sort makes cross-directory ordering explicit so collision and
// overwrite semantics downstream are deterministic.
//
// Group derivation: the immediate containing folder's name, or its parent
// when groupByFolder is set. Paths too shallow to have the requested
// segment degrade to an empty group key; that is accepted, not an error.
func Find(root, suffix string, groupByFolder bool) ([]Unit, error) {
	var units []Unit
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		units = append(units, Unit{
			Path:  path,
			Group: groupKey(root, path, groupByFolder),
			Name:  strings.TrimSuffix(d.Name(), suffix),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	return units, nil
}

func groupKey(root, path string, groupByFolder bool) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	segs := strings.Split(filepath.ToSlash(rel), "/")
	idx := len(segs) - 2
	if groupByFolder {
		idx = len(segs) - 3
	}
	if idx < 0 {
		return ""
	}
	return segs[idx]
}
