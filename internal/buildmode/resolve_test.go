package buildmode

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var signals = []string{"", "production", "development", "staging", "PRODUCTION", " production", "production ", "prod", "test"}

func TestResolve_developmentDefaults(t *testing.T) {
	tests := []struct {
		name   string
		signal string
	}{
		{name: "absent", signal: ""},
		{name: "development", signal: "development"},
		{name: "staging", signal: "staging"},
		{name: "upper case", signal: "PRODUCTION"},
		{name: "padded", signal: " production"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Resolve(tt.signal)
			require.Equal(t, Development, cfg.Environment)
			require.False(t, cfg.Minify)
			require.True(t, cfg.HotReload)
			require.Equal(t, "[name].js", cfg.ScriptFilenamePattern)
			require.Equal(t, "[name].css", cfg.StyleFilenamePattern)
			require.Equal(t, SourceMapLinked, cfg.SourceMap)
			require.Equal(t, `"development"`, cfg.Define["process.env.NODE_ENV"])
		})
	}
}

func TestResolve_production(t *testing.T) {
	cfg := Resolve("production")

	require.Equal(t, Production, cfg.Environment)
	require.True(t, cfg.Minify)
	require.False(t, cfg.HotReload)
	require.Equal(t, "[name].[hash].js", cfg.ScriptFilenamePattern)
	require.Equal(t, "[name].[hash].css", cfg.StyleFilenamePattern)
	require.Equal(t, "chunks/[name].[hash].js", cfg.ChunkFilenamePattern)
	require.Equal(t, "assets/[name].[hash][ext]", cfg.AssetFilenamePattern)
	require.Equal(t, SourceMapNone, cfg.SourceMap)
	require.Equal(t, `"production"`, cfg.Define["process.env.NODE_ENV"])
}

func TestResolve_stagingMatchesAbsent(t *testing.T) {
	require.Equal(t, Resolve(""), Resolve("staging"))
}

func TestResolve_complementaryFlags(t *testing.T) {
	for _, s := range signals {
		cfg := Resolve(s)
		require.Equal(t, cfg.Minify, !cfg.HotReload, "signal %q", s)
		require.Equal(t, cfg.Minify, cfg.Environment.IsProduction(), "signal %q", s)
	}
}

func TestResolve_hashBranchShared(t *testing.T) {
	for _, token := range []HashToken{TokenHash, TokenContentHash} {
		project := DefaultProject()
		project.HashToken = token
		r := NewResolver(project)

		for _, s := range signals {
			cfg := r.Resolve(s)
			placeholder := "[" + string(token) + "]"
			patterns := []string{
				cfg.ScriptFilenamePattern,
				cfg.StyleFilenamePattern,
				cfg.ChunkFilenamePattern,
				cfg.AssetFilenamePattern,
			}
			for _, p := range patterns {
				require.Equal(t, cfg.Minify, strings.Contains(p, placeholder), "signal %q pattern %q", s, p)
			}
		}
	}
}

func TestResolve_contentHashToken(t *testing.T) {
	project := DefaultProject()
	project.HashToken = TokenContentHash

	cfg := NewResolver(project).Resolve("production")
	require.Equal(t, "[name].[contenthash].js", cfg.ScriptFilenamePattern)
	require.Equal(t, "[name].[contenthash].css", cfg.StyleFilenamePattern)
}

func TestResolve_unknownHashTokenFallsBack(t *testing.T) {
	project := DefaultProject()
	project.HashToken = "chunkhash"

	cfg := NewResolver(project).Resolve("production")
	require.Equal(t, "[name].[hash].js", cfg.ScriptFilenamePattern)
}

func TestResolve_idempotent(t *testing.T) {
	for _, s := range signals {
		require.Equal(t, Resolve(s), Resolve(s), "signal %q", s)
	}
}

func TestResolve_targetsIndependentOfEnvironment(t *testing.T) {
	project := DefaultProject()
	project.Targets = Targets{Baseline: "es2018", Engines: map[string]string{"chrome": "90", "safari": "14"}}
	r := NewResolver(project)

	require.Equal(t, r.Resolve("").Targets, r.Resolve("production").Targets)
	require.Equal(t, project.Targets, r.Resolve("production").Targets)
}

func TestResolve_resultsDoNotShareState(t *testing.T) {
	project := DefaultProject()
	project.Targets.Engines = map[string]string{"chrome": "90"}
	r := NewResolver(project)

	a := r.Resolve("production")
	a.Entries["extra"] = "./src/extra.js"
	a.Targets.Engines["chrome"] = "1"
	a.Define["DEBUG"] = "true"

	b := r.Resolve("production")
	require.NotContains(t, b.Entries, "extra")
	require.Equal(t, "90", b.Targets.Engines["chrome"])
	require.NotContains(t, b.Define, "DEBUG")

	// mutating the caller's project after construction has no effect
	project.Entries["late"] = "./src/late.js"
	require.NotContains(t, r.Resolve("").Entries, "late")
}

func TestResolve_productionSourceMaps(t *testing.T) {
	project := DefaultProject()
	project.ProductionSourceMaps = true
	r := NewResolver(project)

	require.Equal(t, SourceMapExternal, r.Resolve("production").SourceMap)
	require.Equal(t, SourceMapLinked, r.Resolve("").SourceMap)
}

func TestResolve_projectFieldsCarried(t *testing.T) {
	cfg := Resolve("")

	require.Equal(t, map[string]string{"main": "./src/index.js"}, cfg.Entries)
	require.Equal(t, "dist", cfg.OutputDir)
	require.Equal(t, "./src/templates/index.html", cfg.TemplateEntry)
	require.Equal(t, "index.html", cfg.DocumentFilename)
	require.Equal(t, "/", cfg.PublicPath)
	require.Equal(t, DefaultTargets(), cfg.Targets)
}

func TestResolve_concurrent(t *testing.T) {
	r := NewResolver(DefaultProject())
	want := r.Resolve("production")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := r.Resolve("production")
			got.Entries["mutated"] = "x"
		}()
	}
	wg.Wait()

	require.Equal(t, want, r.Resolve("production"))
}

func TestEnvironment_String(t *testing.T) {
	require.Equal(t, "production", Production.String())
	require.Equal(t, "development", Development.String())

	text, err := Production.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "production", string(text))
}
