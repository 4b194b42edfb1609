// Package config loads the sitepack project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/wolfeidau/sitepack/internal/buildmode"
	"gopkg.in/yaml.v3"
)

// FileName is the project file looked up by Find.
const FileName = "sitepack.yaml"

var (
	ErrProjectNotFound = errors.New("project file not found")
	ErrInvalidProject  = errors.New("invalid project")
)

var validEntryNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// File is the on-disk shape of sitepack.yaml.
type File struct {
	Title                string            `yaml:"title"`
	Entries              map[string]string `yaml:"entries"`
	OutputDir            string            `yaml:"output_dir"`
	Template             string            `yaml:"template"`
	Document             string            `yaml:"document"`
	PublicPath           string            `yaml:"public_path"`
	HashToken            string            `yaml:"hash_token"`
	ProductionSourceMaps bool              `yaml:"production_source_maps"`
	Targets              *TargetsDTO       `yaml:"targets"`
}

// TargetsDTO is the targets block of the project file.
type TargetsDTO struct {
	Baseline string            `yaml:"baseline"`
	Engines  map[string]string `yaml:"engines"`
}

// Find walks up from dir and returns the path of the nearest project file.
func Find(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for {
		candidate := filepath.Join(current, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("%w: no %s in %s or any parent", ErrProjectNotFound, FileName, dir)
}

// Load reads and validates the project file at path. Fields the file omits
// take their values from buildmode.DefaultProject.
func Load(path string) (buildmode.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return buildmode.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, path)
		}
		return buildmode.Project{}, fmt.Errorf("failed to read project file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return buildmode.Project{}, fmt.Errorf("%w: %s: %v", ErrInvalidProject, path, err)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return buildmode.Project{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	project := file.project(root)
	if err := Validate(project); err != nil {
		return buildmode.Project{}, fmt.Errorf("%s: %w", path, err)
	}

	return project, nil
}

func (f *File) project(root string) buildmode.Project {
	project := buildmode.DefaultProject()
	project.Root = root

	if len(f.Entries) > 0 {
		project.Entries = f.Entries
	}
	if f.OutputDir != "" {
		project.OutputDir = f.OutputDir
	}
	if f.Template != "" {
		project.TemplateEntry = f.Template
	}
	if f.Document != "" {
		project.DocumentFilename = f.Document
	}
	if f.PublicPath != "" {
		project.PublicPath = f.PublicPath
	}
	if f.HashToken != "" {
		project.HashToken = buildmode.HashToken(f.HashToken)
	}
	if f.Targets != nil {
		project.Targets = buildmode.Targets{
			Baseline: f.Targets.Baseline,
			Engines:  f.Targets.Engines,
		}
	}
	project.Title = f.Title
	project.ProductionSourceMaps = f.ProductionSourceMaps

	return project
}

// Validate checks a project for values the bundler cannot act on.
func Validate(p buildmode.Project) error {
	if len(p.Entries) == 0 {
		return fmt.Errorf("%w: at least one entry is required", ErrInvalidProject)
	}
	for name, source := range p.Entries {
		if !validEntryNameRegex.MatchString(name) {
			return fmt.Errorf("%w: entry name %q must match %s", ErrInvalidProject, name, validEntryNameRegex)
		}
		if strings.TrimSpace(source) == "" {
			return fmt.Errorf("%w: entry %q has no source path", ErrInvalidProject, name)
		}
	}

	if strings.TrimSpace(p.OutputDir) == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalidProject)
	}
	if !validDocumentName(p.DocumentFilename) {
		return fmt.Errorf("%w: document %q must be a file name", ErrInvalidProject, p.DocumentFilename)
	}
	if !strings.HasPrefix(p.PublicPath, "/") && !strings.Contains(p.PublicPath, "://") {
		return fmt.Errorf("%w: public_path %q must be absolute", ErrInvalidProject, p.PublicPath)
	}
	if !p.HashToken.Valid() {
		return fmt.Errorf("%w: unknown hash_token %q (use %s or %s)", ErrInvalidProject, p.HashToken, buildmode.TokenHash, buildmode.TokenContentHash)
	}

	return validateTargets(p.Targets)
}

// validDocumentName reports whether name is a plain file name that can be
// written inside the output directory.
func validDocumentName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func validateTargets(t buildmode.Targets) error {
	if t.Baseline == "" && len(t.Engines) == 0 {
		return fmt.Errorf("%w: targets must name a baseline or at least one engine", ErrInvalidProject)
	}
	if t.Baseline != "" && !slices.Contains(buildmode.Baselines, strings.ToLower(t.Baseline)) {
		return fmt.Errorf("%w: unknown baseline %q", ErrInvalidProject, t.Baseline)
	}
	for engine, version := range t.Engines {
		if !slices.Contains(buildmode.EngineNames, strings.ToLower(engine)) {
			return fmt.Errorf("%w: unknown engine %q", ErrInvalidProject, engine)
		}
		if strings.TrimSpace(version) == "" {
			return fmt.Errorf("%w: engine %q has no version", ErrInvalidProject, engine)
		}
	}
	return nil
}
