package http

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/sitepack/internal/assets"
)

const (
	immutableCacheControl  = "public, max-age=31536000, immutable"
	revalidateCacheControl = "no-cache"
)

// PublicPathPrefix returns the URL path assets are mounted under for a
// public path, always with a trailing slash. Absolute URLs contribute only
// their path.
func PublicPathPrefix(publicPath string) string {
	p := publicPath
	if u, err := url.Parse(publicPath); err == nil && u.Host != "" {
		p = u.Path
	}
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// ETag returns a strong validator derived from the content's CRC64-NVME
// checksum.
func ETag(data []byte) string {
	h := crc64nvme.New()
	h.Write(data)

	sum := make([]byte, 8)
	binary.BigEndian.PutUint64(sum, h.Sum64())

	return `"` + base58.Encode(sum) + `"`
}

// StaticHandler serves build artifacts from dir. The immutable names,
// slash separated and relative to dir, are content hashed outputs and are
// cached forever; everything else revalidates. Precompressed .zst and .gz
// siblings are served when the client accepts them. Requests for
// extensionless paths that match no file are answered with the fallback
// document when one is given.
func StaticHandler(dir, fallback string, immutable ...string) http.Handler {
	h := &staticHandler{
		dir:       dir,
		fallback:  fallback,
		immutable: make(map[string]struct{}, len(immutable)),
	}
	for _, name := range immutable {
		h.immutable[path.Clean("/"+name)] = struct{}{}
	}
	return h
}

type staticHandler struct {
	dir       string
	fallback  string
	immutable map[string]struct{}
}

func (h *staticHandler) cacheControl(name string) string {
	if _, ok := h.immutable[name]; ok {
		return immutableCacheControl
	}
	return revalidateCacheControl
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(name, "/") && h.fallback != "" {
		name += h.fallback
	}

	file := filepath.Join(h.dir, filepath.FromSlash(name))
	info, err := os.Stat(file)
	switch {
	case err == nil && info.IsDir():
		if h.fallback == "" {
			http.NotFound(w, r)
			return
		}
		name = path.Join(name, h.fallback)
		file = filepath.Join(file, h.fallback)
	case errors.Is(err, fs.ErrNotExist) && path.Ext(name) == "" && h.fallback != "":
		name = "/" + h.fallback
		file = filepath.Join(h.dir, h.fallback)
	case err != nil:
		http.NotFound(w, r)
		return
	}

	h.serveFile(w, r, name, file)
}

func (h *staticHandler) serveFile(w http.ResponseWriter, r *http.Request, name, file string) {
	served := file
	encoding := ""

	for _, enc := range assets.Encodings {
		if !acceptsEncoding(r, enc.Name) {
			continue
		}
		if _, err := os.Stat(file + enc.Ext); err == nil {
			served = file + enc.Ext
			encoding = enc.Name
			break
		}
	}

	data, err := os.ReadFile(served)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		log.Error().Err(err).Str("file", served).Msg("Failed to read file")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	info, err := os.Stat(served)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	header := w.Header()
	header.Set("Cache-Control", h.cacheControl(name))
	header.Set("ETag", ETag(data))
	header.Add("Vary", "Accept-Encoding")
	if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
		header.Set("Content-Type", ctype)
	}
	if encoding != "" {
		header.Set("Content-Encoding", encoding)
	}

	http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(data))
}

// acceptsEncoding reports whether the Accept-Encoding header lists coding
// without a zero quality value.
func acceptsEncoding(r *http.Request, coding string) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		token, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(token), coding) {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}
