package assets

import (
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/sitepack/internal/buildmode"
)

func TestBuildOptions_development(t *testing.T) {
	cfg := buildmode.Resolve("")

	opts, err := BuildOptions(cfg)
	require.NoError(t, err)

	root, err := filepath.Abs(".")
	require.NoError(t, err)

	require.Equal(t, root, opts.AbsWorkingDir)
	require.Equal(t, []api.EntryPoint{{InputPath: "./src/index.js", OutputPath: "main"}}, opts.EntryPointsAdvanced)
	require.Equal(t, "[name]", opts.EntryNames)
	require.Equal(t, "chunks/[name]", opts.ChunkNames)
	require.Equal(t, "assets/[name]", opts.AssetNames)
	require.False(t, opts.Splitting)
	require.False(t, opts.MinifyWhitespace)
	require.False(t, opts.MinifyIdentifiers)
	require.False(t, opts.MinifySyntax)
	require.Equal(t, api.SourceMapLinked, opts.Sourcemap)
	require.Equal(t, api.ES2020, opts.Target)
	require.Empty(t, opts.Engines)
	require.Equal(t, "dist", opts.Outdir)
	require.Equal(t, "/", opts.PublicPath)
	require.Equal(t, `"development"`, opts.Define["process.env.NODE_ENV"])
	require.True(t, opts.Bundle)
	require.True(t, opts.Metafile)
	require.True(t, opts.Write)
	require.Equal(t, api.FormatESModule, opts.Format)
	require.Equal(t, api.PlatformBrowser, opts.Platform)
}

func TestBuildOptions_production(t *testing.T) {
	cfg := buildmode.Resolve("production")

	opts, err := BuildOptions(cfg)
	require.NoError(t, err)

	require.Equal(t, "[name].[hash]", opts.EntryNames)
	require.Equal(t, "chunks/[name].[hash]", opts.ChunkNames)
	require.Equal(t, "assets/[name].[hash]", opts.AssetNames)
	require.True(t, opts.Splitting)
	require.True(t, opts.MinifyWhitespace)
	require.True(t, opts.MinifyIdentifiers)
	require.True(t, opts.MinifySyntax)
	require.Equal(t, api.SourceMapNone, opts.Sourcemap)
	require.Equal(t, `"production"`, opts.Define["process.env.NODE_ENV"])
}

func TestBuildOptions_contentHashNormalised(t *testing.T) {
	project := buildmode.DefaultProject()
	project.HashToken = buildmode.TokenContentHash

	opts, err := BuildOptions(buildmode.NewResolver(project).Resolve("production"))
	require.NoError(t, err)

	require.Equal(t, "[name].[hash]", opts.EntryNames)
	require.Equal(t, "chunks/[name].[hash]", opts.ChunkNames)
	require.True(t, opts.Splitting)
}

func TestBuildOptions_targets(t *testing.T) {
	project := buildmode.DefaultProject()
	project.Targets = buildmode.Targets{
		Baseline: "ES2018",
		Engines:  map[string]string{"safari": "14", "chrome": "90"},
	}

	opts, err := BuildOptions(buildmode.NewResolver(project).Resolve("production"))
	require.NoError(t, err)

	require.Equal(t, api.ES2018, opts.Target)
	require.Equal(t, []api.Engine{
		{Name: api.EngineChrome, Version: "90"},
		{Name: api.EngineSafari, Version: "14"},
	}, opts.Engines)
}

func TestBuildOptions_engineOnlyTargets(t *testing.T) {
	project := buildmode.DefaultProject()
	project.Targets = buildmode.Targets{Engines: map[string]string{"firefox": "100"}}

	opts, err := BuildOptions(buildmode.NewResolver(project).Resolve(""))
	require.NoError(t, err)

	require.Equal(t, api.DefaultTarget, opts.Target)
	require.Equal(t, []api.Engine{{Name: api.EngineFirefox, Version: "100"}}, opts.Engines)
}

func TestBuildOptions_invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*buildmode.Configuration)
		target error
	}{
		{
			name:   "unknown baseline",
			mutate: func(c *buildmode.Configuration) { c.Targets.Baseline = "es1999" },
		},
		{
			name:   "unknown engine",
			mutate: func(c *buildmode.Configuration) { c.Targets.Engines = map[string]string{"netscape": "4"} },
		},
		{
			name: "divergent naming",
			mutate: func(c *buildmode.Configuration) {
				c.ScriptFilenamePattern = "[name].[hash].js"
				c.StyleFilenamePattern = "[name].css"
			},
			target: ErrDivergentNaming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := buildmode.Resolve("production")
			tt.mutate(&cfg)

			_, err := BuildOptions(cfg)
			require.Error(t, err)
			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestBuildOptions_entriesSorted(t *testing.T) {
	project := buildmode.DefaultProject()
	project.Entries = map[string]string{"zeta": "./src/z.js", "alpha": "./src/a.js", "main": "./src/index.js"}

	opts, err := BuildOptions(buildmode.NewResolver(project).Resolve(""))
	require.NoError(t, err)

	require.Equal(t, []api.EntryPoint{
		{InputPath: "./src/a.js", OutputPath: "alpha"},
		{InputPath: "./src/index.js", OutputPath: "main"},
		{InputPath: "./src/z.js", OutputPath: "zeta"},
	}, opts.EntryPointsAdvanced)
}

func TestBuildOptions_assetLoaders(t *testing.T) {
	opts, err := BuildOptions(buildmode.Resolve(""))
	require.NoError(t, err)

	for _, ext := range []string{".jpg", ".jpeg", ".gif", ".png", ".svg", ".woff", ".woff2", ".ttf", ".eot", ".wav", ".mp3"} {
		require.Equal(t, api.LoaderFile, opts.Loader[ext], ext)
	}
}

func TestBuildOptions_productionSourceMaps(t *testing.T) {
	project := buildmode.DefaultProject()
	project.ProductionSourceMaps = true

	opts, err := BuildOptions(buildmode.NewResolver(project).Resolve("production"))
	require.NoError(t, err)
	require.Equal(t, api.SourceMapExternal, opts.Sourcemap)
}
