package assets

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/sitepack/internal/buildmode"
)

// ErrDivergentNaming is returned when the script and style filename patterns
// do not share a stem. esbuild names both from a single entry template.
var ErrDivergentNaming = errors.New("script and style filename patterns must share the same stem")

// assetLoaders routes static resources through the file loader so they are
// copied to the output directory and referenced by URL.
var assetLoaders = map[string]api.Loader{
	".jpg":   api.LoaderFile,
	".jpeg":  api.LoaderFile,
	".gif":   api.LoaderFile,
	".png":   api.LoaderFile,
	".svg":   api.LoaderFile,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
	".eot":   api.LoaderFile,
	".wav":   api.LoaderFile,
	".mp3":   api.LoaderFile,
}

var baselineTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// BuildOptions translates a resolved configuration into esbuild options.
func BuildOptions(cfg buildmode.Configuration) (api.BuildOptions, error) {
	entryNames, err := entryTemplate(cfg)
	if err != nil {
		return api.BuildOptions{}, err
	}

	target, engines, err := targetOptions(cfg.Targets)
	if err != nil {
		return api.BuildOptions{}, err
	}

	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return api.BuildOptions{}, fmt.Errorf("failed to resolve root dir: %w", err)
	}

	chunkNames := normaliseTemplate(strings.TrimSuffix(cfg.ChunkFilenamePattern, ".js"))

	return api.BuildOptions{
		AbsWorkingDir:       root,
		EntryPointsAdvanced: entryPoints(cfg.Entries),
		Bundle:              true,
		// unhashed chunk names would collide, so code splitting follows the hash rule
		Splitting:         strings.Contains(chunkNames, "[hash]"),
		Write:             true,
		JSX:               api.JSXAutomatic,
		Outdir:            cfg.OutputDir,
		EntryNames:        entryNames,
		ChunkNames:        chunkNames,
		AssetNames:        normaliseTemplate(strings.TrimSuffix(cfg.AssetFilenamePattern, "[ext]")),
		PublicPath:        cfg.PublicPath,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Target:            target,
		Engines:           engines,
		Loader:            assetLoaders,
		Define:            cfg.Define,
		MinifyWhitespace:  cfg.Minify,
		MinifyIdentifiers: cfg.Minify,
		MinifySyntax:      cfg.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         sourceMap(cfg.SourceMap),
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
	}, nil
}

func entryTemplate(cfg buildmode.Configuration) (string, error) {
	scriptStem := strings.TrimSuffix(cfg.ScriptFilenamePattern, ".js")
	styleStem := strings.TrimSuffix(cfg.StyleFilenamePattern, ".css")
	if scriptStem != styleStem {
		return "", fmt.Errorf("%w: %q vs %q", ErrDivergentNaming, cfg.ScriptFilenamePattern, cfg.StyleFilenamePattern)
	}
	return normaliseTemplate(scriptStem), nil
}

// normaliseTemplate maps the hash placeholders onto esbuild's content hash.
func normaliseTemplate(pattern string) string {
	return strings.ReplaceAll(pattern, "[contenthash]", "[hash]")
}

func entryPoints(entries map[string]string) []api.EntryPoint {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)

	points := make([]api.EntryPoint, 0, len(names))
	for _, name := range names {
		points = append(points, api.EntryPoint{
			InputPath:  entries[name],
			OutputPath: name,
		})
	}
	return points
}

func targetOptions(t buildmode.Targets) (api.Target, []api.Engine, error) {
	target := api.DefaultTarget
	if t.Baseline != "" {
		var ok bool
		target, ok = baselineTargets[strings.ToLower(t.Baseline)]
		if !ok {
			return 0, nil, fmt.Errorf("unknown target baseline %q", t.Baseline)
		}
	}

	names := make([]string, 0, len(t.Engines))
	for name := range t.Engines {
		names = append(names, name)
	}
	slices.Sort(names)

	engines := make([]api.Engine, 0, len(names))
	for _, name := range names {
		engine, ok := engineNames[strings.ToLower(name)]
		if !ok {
			return 0, nil, fmt.Errorf("unknown target engine %q", name)
		}
		engines = append(engines, api.Engine{Name: engine, Version: t.Engines[name]})
	}

	return target, engines, nil
}

func sourceMap(mode buildmode.SourceMapMode) api.SourceMap {
	switch mode {
	case buildmode.SourceMapLinked:
		return api.SourceMapLinked
	case buildmode.SourceMapExternal:
		return api.SourceMapExternal
	default:
		return api.SourceMapNone
	}
}
