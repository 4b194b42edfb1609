package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// ReloadPath is the websocket endpoint development documents connect to.
const ReloadPath = "/__sitepack/reload"

const liveReloadScript = `<script>(() => {
  const connect = () => {
    const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + %q);
    ws.onmessage = (event) => {
      const msg = JSON.parse(event.data);
      if (msg.type === "reload") location.reload();
      if (msg.type === "error") (msg.errors || []).forEach((e) => console.error("[sitepack]", e));
    };
    ws.onclose = () => setTimeout(connect, 1000);
  };
  connect();
})();</script>`

// documentFuncs are available to every template entry. marshal embeds a
// value as JSON inside a script; safe marks a trusted HTML fragment.
var documentFuncs = template.FuncMap{
	"marshal": func(v any) (template.JS, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal: %w", err)
		}
		return template.JS(data), nil //nolint:gosec
	},
	"safe": func(s string) template.HTML {
		return template.HTML(s) //nolint:gosec
	},
}

func loadTemplate(path string, extra template.FuncMap) (*template.Template, error) {
	funcs := maps.Clone(documentFuncs)
	maps.Copy(funcs, extra)

	tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", path, err)
	}
	return tmpl, nil
}

// Document is the data passed to the template entry.
type Document struct {
	Title       string
	Environment string
	Scripts     []string
	Styles      []string
	HotReload   bool
	LiveReload  template.HTML
	Context     any
}

// Document collects the scripts and styles of every entry, in entry name
// order, without duplicates.
func (p *Pipeline) Document(data any) (Document, error) {
	doc := Document{
		Title:       p.config.Title,
		Environment: p.config.Environment.String(),
		Scripts:     []string{},
		Styles:      []string{},
		HotReload:   p.config.HotReload,
		Context:     data,
	}

	if p.config.HotReload {
		doc.LiveReload = template.HTML(fmt.Sprintf(liveReloadScript, ReloadPath)) //nolint:gosec
	}

	for _, name := range p.entryNames() {
		scripts, _, err := p.LoadScripts(name)
		if err != nil {
			return Document{}, err
		}
		for _, s := range scripts {
			if !slices.Contains(doc.Scripts, s) {
				doc.Scripts = append(doc.Scripts, s)
			}
		}

		styles, err := p.LoadStyles(name)
		if err != nil {
			return Document{}, err
		}
		for _, s := range styles {
			if !slices.Contains(doc.Styles, s) {
				doc.Styles = append(doc.Styles, s)
			}
		}
	}

	return doc, nil
}

// RenderDocument executes the template entry. Development documents always
// carry the live reload client; production documents have whitespace
// between tags collapsed.
func (p *Pipeline) RenderDocument(w io.Writer, data any) error {
	doc, err := p.Document(data)
	if err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	if err := p.tmpl.Execute(buf, doc); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	out := buf.Bytes()
	if doc.HotReload && !bytes.Contains(out, []byte(ReloadPath)) {
		out = injectBeforeBodyClose(out, []byte(doc.LiveReload))
	}
	if p.config.Minify {
		out = CollapseWhitespace(out)
	}

	_, err = w.Write(out)
	return err
}

func injectBeforeBodyClose(html, snippet []byte) []byte {
	idx := bytes.LastIndex(html, []byte("</body>"))
	if idx == -1 {
		return append(html, snippet...)
	}

	out := make([]byte, 0, len(html)+len(snippet))
	out = append(out, html[:idx]...)
	out = append(out, snippet...)
	return append(out, html[idx:]...)
}

func (p *Pipeline) writeDocument(outDir string) error {
	buf := new(bytes.Buffer)
	if err := p.RenderDocument(buf, nil); err != nil {
		return err
	}

	path := filepath.Join(outDir, p.config.DocumentFilename)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
