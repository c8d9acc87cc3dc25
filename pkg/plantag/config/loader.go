package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognicore/plantag/pkg/plantag/registry"
)

// Base names DirLoader looks for.
const (
	CodificationFile = "codification"
	PatternsFile     = "patterns"
	CodesFile        = "codes"
	HierarchyFile    = "hierarchy"
)

// Loader reads a registry set from files. An empty path leaves that
// registry empty; snapshot validation decides whether that is acceptable.
type Loader struct {
	CodificationPath string
	PatternsPath     string
	CodesPath        string
	HierarchyPath    string
}

var _ registry.Source = (*Loader)(nil)

// DirLoader returns a loader for the registry files found in dir.
func DirLoader(dir string) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, configErr(dir, err)
	}
	if !info.IsDir() {
		return nil, configErr(dir, fmt.Errorf("not a directory"))
	}
	return &Loader{
		CodificationPath: find(dir, CodificationFile),
		PatternsPath:     find(dir, PatternsFile),
		CodesPath:        find(dir, CodesFile),
		HierarchyPath:    find(dir, HierarchyFile),
	}, nil
}

func find(dir, base string) string {
	for _, ext := range Extensions {
		p := filepath.Join(dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Paths returns the configured, non-empty file paths.
func (l *Loader) Paths() []string {
	var out []string
	for _, p := range []string{l.CodificationPath, l.PatternsPath, l.CodesPath, l.HierarchyPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Parts reads every configured file.
func (l *Loader) Parts() (registry.Parts, error) {
	var (
		p   registry.Parts
		err error
	)
	if l.CodificationPath != "" {
		if p.Codification, err = LoadCodification(l.CodificationPath); err != nil {
			return registry.Parts{}, fmt.Errorf("load codification: %w", err)
		}
	}
	if l.PatternsPath != "" {
		if p.Patterns, err = LoadPatterns(l.PatternsPath); err != nil {
			return registry.Parts{}, fmt.Errorf("load patterns: %w", err)
		}
	}
	if l.CodesPath != "" {
		if p.Disciplines, p.Entities, err = LoadCodes(l.CodesPath); err != nil {
			return registry.Parts{}, fmt.Errorf("load codes: %w", err)
		}
	}
	if l.HierarchyPath != "" {
		if p.Hierarchy, err = LoadHierarchy(l.HierarchyPath); err != nil {
			return registry.Parts{}, fmt.Errorf("load hierarchy: %w", err)
		}
	}
	return p, nil
}

// Load reads the files and builds a validated snapshot.
func (l *Loader) Load(ctx context.Context) (*registry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.Parts()
	if err != nil {
		return nil, err
	}
	return registry.Build(p)
}
