package assets

import (
	"bytes"
	"errors"
	"io"
	"regexp"

	"golang.org/x/net/html"
)

var whitespaceRun = regexp.MustCompile(`[ \t\n\f\r]+`)

// blockElements are elements whose surrounding whitespace never renders.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "base": true,
	"blockquote": true, "body": true, "dd": true, "details": true,
	"dialog": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"head": true, "header": true, "hgroup": true, "hr": true, "html": true,
	"li": true, "link": true, "main": true, "meta": true, "nav": true,
	"noscript": true, "ol": true, "option": true, "p": true, "pre": true,
	"script": true, "section": true, "style": true, "summary": true,
	"table": true, "tbody": true, "td": true, "template": true,
	"textarea": true, "tfoot": true, "th": true, "thead": true,
	"title": true, "tr": true, "ul": true,
}

// preservedElements keep their content byte for byte.
var preservedElements = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

type htmlToken struct {
	kind html.TokenType
	name string
	raw  []byte
}

// block reports whether whitespace next to the token can be dropped.
func (t htmlToken) block() bool {
	switch t.kind {
	case html.DoctypeToken:
		return true
	case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
		return blockElements[t.name]
	}
	return false
}

// CollapseWhitespace minifies document whitespace. Runs of whitespace in
// text become a single space, whitespace next to block level elements is
// removed and the content of pre, textarea, script and style is kept as is.
// Input that cannot be tokenized is returned unchanged.
func CollapseWhitespace(doc []byte) []byte {
	tokens, err := tokenize(doc)
	if err != nil {
		return doc
	}

	out := make([]byte, 0, len(doc))
	preserved := 0

	for i, tok := range tokens {
		switch tok.kind {
		case html.StartTagToken:
			if preservedElements[tok.name] {
				preserved++
			}
		case html.EndTagToken:
			if preservedElements[tok.name] && preserved > 0 {
				preserved--
			}
		case html.TextToken:
			if preserved == 0 {
				out = append(out, collapseText(tok.raw, boundary(tokens, i-1), boundary(tokens, i+1))...)
				continue
			}
		}
		out = append(out, tok.raw...)
	}

	return out
}

// boundary reports whether the token at i, or the edge of the document,
// allows adjacent whitespace to be dropped.
func boundary(tokens []htmlToken, i int) bool {
	if i < 0 || i >= len(tokens) {
		return true
	}
	return tokens[i].block()
}

func collapseText(text []byte, blockBefore, blockAfter bool) []byte {
	text = whitespaceRun.ReplaceAll(text, []byte(" "))
	if blockBefore {
		text = bytes.TrimPrefix(text, []byte(" "))
	}
	if blockAfter {
		text = bytes.TrimSuffix(text, []byte(" "))
	}
	return text
}

func tokenize(doc []byte) ([]htmlToken, error) {
	z := html.NewTokenizer(bytes.NewReader(doc))

	var tokens []htmlToken
	for {
		kind := z.Next()
		if kind == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return tokens, nil
			}
			return nil, z.Err()
		}

		tok := htmlToken{kind: kind, raw: bytes.Clone(z.Raw())}
		if kind == html.StartTagToken || kind == html.EndTagToken || kind == html.SelfClosingTagToken {
			name, _ := z.TagName()
			tok.name = string(name)
		}
		tokens = append(tokens, tok)
	}
}
