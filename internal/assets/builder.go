package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/sitepack/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrBuildFailed   = errors.New("esbuild failed with errors")
	ErrNotBuilt      = errors.New("assets not built yet, call Build() first")
	ErrEntryNotFound = errors.New("entrypoint not found in metadata")
)

// BuildOptions returns the esbuild options for the pipeline's configuration
// including any registered plugins
func (p *Pipeline) BuildOptions() (api.BuildOptions, error) {
	opts, err := BuildOptions(p.config)
	if err != nil {
		return api.BuildOptions{}, err
	}
	opts.Plugins = p.plugins
	return opts, nil
}

// Build runs esbuild with the configured settings and loads metadata
func (p *Pipeline) Build(ctx context.Context) error {
	ctx, span := telemetry.Tracer().Start(ctx, "assets.Build")
	defer span.End()

	opts, err := p.BuildOptions()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	log.Info().
		Strs("entrypoints", p.entryNames()).
		Str("environment", p.config.Environment.String()).
		Msg("Building assets")

	started := time.Now()
	result := api.Build(opts)

	if err := p.Apply(ctx, result, started); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Apply processes a completed esbuild result: it records metrics, writes the
// metafile, caches metadata, renders the document and writes the manifest.
// Production results are also precompressed.
func (p *Pipeline) Apply(ctx context.Context, result api.BuildResult, started time.Time) error {
	metrics := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("environment", p.config.Environment.String()))

	metrics.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)

	for _, msg := range result.Warnings {
		log.Warn().Str("warning", formatMessage(msg)).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", formatMessage(msg)).Msg("Build error")
		}
		metrics.BuildErrorsTotal.Add(ctx, 1, attrs)
		return ErrBuildFailed
	}
	metrics.BuildsTotal.Add(ctx, 1, attrs)

	outDir := p.OutputDir()
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	// Write metafile
	if err := os.WriteFile(filepath.Join(outDir, MetafileName), []byte(result.Metafile), 0600); err != nil {
		return err
	}

	// Parse and cache metadata
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return fmt.Errorf("failed to parse metafile: %w", err)
	}

	p.mu.Lock()
	p.metadata = &metadata
	p.mu.Unlock()

	var total int64
	for path, info := range metadata.Outputs {
		total += int64(info.Bytes)
		log.Debug().Str("file", path).Int("bytes", info.Bytes).Msg("Built file")
	}
	metrics.OutputBytes.Record(ctx, total, attrs)

	if err := p.writeDocument(outDir); err != nil {
		return err
	}

	if err := p.writeManifest(outDir); err != nil {
		return err
	}

	if p.config.Minify {
		if err := Precompress(outDir); err != nil {
			return fmt.Errorf("failed to precompress assets: %w", err)
		}
	}

	log.Info().
		Int("outputs", len(metadata.Outputs)).
		Int64("bytes", total).
		Dur("duration", time.Since(started)).
		Msg("Assets built")

	return nil
}

// LoadScripts returns the ordered list of script URLs needed for the named
// entry and the URL of the entry's own bundle
func (p *Pipeline) LoadScripts(entryName string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	outputPath, info, ok := p.findOutput(entryName, ".js")
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrEntryNotFound, entryName)
	}

	entrypoint := p.url(outputPath)
	scripts := []string{entrypoint}
	visited := map[string]bool{outputPath: true}
	p.addDependencies(info, &scripts, visited)

	return scripts, entrypoint, nil
}

// LoadStyles returns the stylesheet URLs extracted for the named entry
func (p *Pipeline) LoadStyles(entryName string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}

	styles := []string{}

	if _, info, ok := p.findOutput(entryName, ".js"); ok && info.CSSBundle != "" {
		styles = append(styles, p.url(info.CSSBundle))
	}

	// entries that are stylesheets themselves
	if outputPath, _, ok := p.findOutput(entryName, ".css"); ok {
		if url := p.url(outputPath); !slices.Contains(styles, url) {
			styles = append(styles, url)
		}
	}

	if len(styles) == 0 {
		if _, ok := p.config.Entries[entryName]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entryName)
		}
	}

	return styles, nil
}

func (p *Pipeline) findOutput(entryName, ext string) (string, OutputInfo, bool) {
	source, ok := p.config.Entries[entryName]
	if !ok {
		return "", OutputInfo{}, false
	}
	key := p.entryKey(source)

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == key && strings.HasSuffix(outputPath, ext) {
			return outputPath, info, true
		}
	}
	return "", OutputInfo{}, false
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		// lazily loaded chunks are fetched by the bundle itself
		if imp.Kind == "dynamic-import" || !strings.HasSuffix(imp.Path, ".js") {
			continue
		}
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, p.url(imp.Path))

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// entryKey converts an entry source path to the form esbuild records in the
// metafile: slash separated and relative to the working dir.
func (p *Pipeline) entryKey(source string) string {
	if filepath.IsAbs(source) {
		if root, err := filepath.Abs(p.config.RootDir); err == nil {
			if rel, err := filepath.Rel(root, source); err == nil {
				source = rel
			}
		}
	}
	return filepath.ToSlash(filepath.Clean(source))
}

// url maps a metafile output path to the URL it is served under.
func (p *Pipeline) url(outputPath string) string {
	rel := strings.TrimPrefix(outputPath, p.outputKeyPrefix()+"/")
	return strings.TrimSuffix(p.config.PublicPath, "/") + "/" + rel
}

func (p *Pipeline) outputKeyPrefix() string {
	out := p.config.OutputDir
	if filepath.IsAbs(out) {
		if root, err := filepath.Abs(p.config.RootDir); err == nil {
			if rel, err := filepath.Rel(root, out); err == nil {
				out = rel
			}
		}
	}
	return filepath.ToSlash(filepath.Clean(out))
}

func (p *Pipeline) entryNames() []string {
	names := make([]string, 0, len(p.config.Entries))
	for name := range p.config.Entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Handler returns an http.HandlerFunc that renders the document with the
// current scripts and styles
func (p *Pipeline) Handler(contextFn func(ctx context.Context) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data any
		if contextFn != nil {
			data = contextFn(r.Context())
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := p.RenderDocument(w, data); err != nil {
			log.Error().Err(err).Msg("Failed to render document")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

// FormatMessages renders esbuild messages one per line.
func FormatMessages(msgs []api.Message) []string {
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, formatMessage(msg))
	}
	return lines
}
