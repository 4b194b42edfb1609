package buildmode

import (
	"maps"
	"strconv"
)

// SourceMapMode selects how source maps are emitted.
type SourceMapMode string

const (
	SourceMapNone     SourceMapMode = "none"
	SourceMapLinked   SourceMapMode = "linked"
	SourceMapExternal SourceMapMode = "external"
)

// Project holds the static, mode-independent inputs authored for a build.
type Project struct {
	// Directory that entry, template and output paths are relative to
	Root string
	// Named entry points, e.g. main: ./src/index.js
	Entries map[string]string
	// Root directory for emitted artifacts
	OutputDir string
	// Markup template used to generate the root document
	TemplateEntry string
	// Name of the generated document inside OutputDir
	DocumentFilename string
	// URL prefix the emitted assets are served under
	PublicPath string
	// Document title passed to the template
	Title string
	// Runtime baseline shared by script and style handling
	Targets Targets
	// Placeholder used for the hash segment in production filenames
	HashToken HashToken
	// Emit external source maps in production builds
	ProductionSourceMaps bool
}

// DefaultProject returns the project layout used when no project file is present.
func DefaultProject() Project {
	return Project{
		Root:             ".",
		Entries:          map[string]string{"main": "./src/index.js"},
		OutputDir:        "dist",
		TemplateEntry:    "./src/templates/index.html",
		DocumentFilename: "index.html",
		PublicPath:       "/",
		Targets:          DefaultTargets(),
		HashToken:        TokenHash,
	}
}

func (p Project) clone() Project {
	c := p
	c.Entries = maps.Clone(p.Entries)
	c.Targets = p.Targets.clone()
	return c
}

// Configuration is the complete record handed to the bundler for a single
// invocation. Values returned by Resolve share no mutable state.
type Configuration struct {
	Environment           Environment       `json:"environment"`
	RootDir               string            `json:"rootDir"`
	Entries               map[string]string `json:"entries"`
	OutputDir             string            `json:"outputDir"`
	ScriptFilenamePattern string            `json:"scriptFilenamePattern"`
	StyleFilenamePattern  string            `json:"styleFilenamePattern"`
	ChunkFilenamePattern  string            `json:"chunkFilenamePattern"`
	AssetFilenamePattern  string            `json:"assetFilenamePattern"`
	Minify                bool              `json:"minify"`
	HotReload             bool              `json:"hotReload"`
	SourceMap             SourceMapMode     `json:"sourceMap"`
	Targets               Targets           `json:"targets"`
	TemplateEntry         string            `json:"templateEntry"`
	DocumentFilename      string            `json:"documentFilename"`
	PublicPath            string            `json:"publicPath"`
	Title                 string            `json:"title,omitempty"`
	Define                map[string]string `json:"define"`
}

// Resolver derives configurations for one project. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	project Project
}

// NewResolver returns a resolver for a copy of the given project.
func NewResolver(project Project) *Resolver {
	return &Resolver{project: project.clone()}
}

// Resolve derives the configuration for an environment signal against the
// default project.
func Resolve(signal string) Configuration {
	return NewResolver(DefaultProject()).Resolve(signal)
}

// Resolve derives the configuration for an environment signal. It never
// fails: any signal other than "production" resolves to Development.
func (r *Resolver) Resolve(signal string) Configuration {
	env := ParseEnvironment(signal)
	minify := env.IsProduction()
	hotReload := !minify

	naming := NewNamingPolicy(minify, r.project.HashToken)

	return Configuration{
		Environment:           env,
		RootDir:               r.project.Root,
		Entries:               maps.Clone(r.project.Entries),
		OutputDir:             r.project.OutputDir,
		ScriptFilenamePattern: naming.Pattern(Script),
		StyleFilenamePattern:  naming.Pattern(Style),
		ChunkFilenamePattern:  naming.Pattern(Chunk),
		AssetFilenamePattern:  naming.Pattern(Asset),
		Minify:                minify,
		HotReload:             hotReload,
		SourceMap:             r.sourceMap(env),
		Targets:               r.project.Targets.clone(),
		TemplateEntry:         r.project.TemplateEntry,
		DocumentFilename:      r.project.DocumentFilename,
		PublicPath:            r.project.PublicPath,
		Title:                 r.project.Title,
		Define: map[string]string{
			"process.env.NODE_ENV": strconv.Quote(env.String()),
		},
	}
}

func (r *Resolver) sourceMap(env Environment) SourceMapMode {
	switch {
	case !env.IsProduction():
		return SourceMapLinked
	case r.project.ProductionSourceMaps:
		return SourceMapExternal
	default:
		return SourceMapNone
	}
}
