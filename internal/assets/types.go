package assets

import (
	"html/template"
	"path/filepath"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/sitepack/internal/buildmode"
)

const (
	// MetafileName is the esbuild metafile written next to the bundles.
	MetafileName = "meta.json"
	// ManifestName maps entries to their emitted scripts and styles.
	ManifestName = "manifest.json"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Pipeline manages the asset build process and document rendering
type Pipeline struct {
	config   buildmode.Configuration
	metadata *BuildMetadata
	tmpl     *template.Template
	plugins  []api.Plugin
	mu       sync.RWMutex
}

// New creates a new asset pipeline for the given configuration and loads
// its template entry
func New(config buildmode.Configuration) (*Pipeline, error) {
	return NewWithFuncs(config, nil)
}

// NewWithFuncs is New with extra template functions. Functions named like a
// built-in one replace it.
func NewWithFuncs(config buildmode.Configuration, funcs template.FuncMap) (*Pipeline, error) {
	p := &Pipeline{config: config}

	tmpl, err := loadTemplate(p.path(config.TemplateEntry), funcs)
	if err != nil {
		return nil, err
	}
	p.tmpl = tmpl
	return p, nil
}

// WithPlugins returns the pipeline after adding esbuild plugins to every build.
func (p *Pipeline) WithPlugins(plugins ...api.Plugin) *Pipeline {
	p.plugins = append(p.plugins, plugins...)
	return p
}

// Config returns the configuration the pipeline was created with.
func (p *Pipeline) Config() buildmode.Configuration {
	return p.config
}

// OutputDir returns the artifact directory resolved against the root dir.
func (p *Pipeline) OutputDir() string {
	return p.path(p.config.OutputDir)
}

// path resolves a project path against the configured root dir.
func (p *Pipeline) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.config.RootDir, name)
}
