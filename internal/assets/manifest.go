package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Manifest records what a build emitted for each entry.
type Manifest struct {
	BuildID     string                   `json:"buildId"`
	Environment string                   `json:"environment"`
	Document    string                   `json:"document"`
	PublicPath  string                   `json:"publicPath"`
	Entries     map[string]ManifestEntry `json:"entries"`
	// Immutable lists content hashed outputs relative to the output dir.
	Immutable []string `json:"immutable"`
}

type ManifestEntry struct {
	Scripts []string `json:"scripts"`
	Styles  []string `json:"styles"`
}

// Manifest builds the manifest for the most recent build.
func (p *Pipeline) Manifest() (Manifest, error) {
	m := Manifest{
		BuildID:     uuid.NewString(),
		Environment: p.config.Environment.String(),
		Document:    p.config.DocumentFilename,
		PublicPath:  p.config.PublicPath,
		Entries:     make(map[string]ManifestEntry, len(p.config.Entries)),
		Immutable:   p.immutableOutputs(),
	}

	for _, name := range p.entryNames() {
		scripts, _, err := p.LoadScripts(name)
		if err != nil {
			return Manifest{}, err
		}
		styles, err := p.LoadStyles(name)
		if err != nil {
			return Manifest{}, err
		}
		m.Entries[name] = ManifestEntry{Scripts: scripts, Styles: styles}
	}

	return m, nil
}

// immutableOutputs returns the emitted files whose names carry a content
// hash. The naming rule is shared by every output, so either all of them
// are hashed or none are.
func (p *Pipeline) immutableOutputs() []string {
	if !strings.Contains(normaliseTemplate(p.config.ScriptFilenamePattern), "[hash]") {
		return []string{}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return []string{}
	}

	prefix := p.outputKeyPrefix() + "/"
	names := make([]string, 0, len(p.metadata.Outputs))
	for outputPath := range p.metadata.Outputs {
		if rel, ok := strings.CutPrefix(outputPath, prefix); ok {
			names = append(names, rel)
		}
	}
	slices.Sort(names)
	return names
}

func (p *Pipeline) writeManifest(outDir string) error {
	m, err := p.Manifest()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(outDir, ManifestName), data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by a previous build.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
