// Package markup renders item descriptions, written in Org mode syntax,
// to HTML. Source blocks are highlighted with chroma using CSS classes;
// the matching stylesheet comes from Renderer.CSS.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/niklasfasching/go-org/org"
)

const defaultStyle = "friendly"

var errNoFiles = errors.New("markup: file access disabled")

type Renderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func New() *Renderer {
	return &Renderer{
		style:     styles.Get(defaultStyle),
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// Render converts an Org document to HTML. Raw HTML passthrough constructs
// are dropped and links with unsafe schemes are rendered as plain text, so
// the output may be embedded in a page as-is.
func (r *Renderer) Render(source string) (template.HTML, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	out, err := newConfig().Parse(strings.NewReader(source), "").Write(r.newWriter())
	if err != nil {
		return "", fmt.Errorf("markup: rendering org: %w", err)
	}
	return template.HTML(out), nil
}

// CSS returns the stylesheet for highlighted code blocks.
func (r *Renderer) CSS() (string, error) {
	var buf bytes.Buffer
	if err := r.formatter.WriteCSS(&buf, r.style); err != nil {
		return "", fmt.Errorf("markup: writing css: %w", err)
	}
	return buf.String(), nil
}

// newConfig returns a parser configuration that never touches the local
// filesystem; #+INCLUDE and #+SETUPFILE keywords are left unresolved.
func newConfig() *org.Configuration {
	conf := org.New().Silent()
	conf.ReadFile = func(string) ([]byte, error) { return nil, errNoFiles }
	return conf
}

func (r *Renderer) newWriter() *safeWriter {
	hw := org.NewHTMLWriter()
	hw.HighlightCodeBlock = r.highlight
	sw := &safeWriter{HTMLWriter: hw}
	hw.ExtendingWriter = sw
	return sw
}

func (r *Renderer) highlight(source, lang string, inline bool, params map[string]string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "<pre>" + html.EscapeString(source) + "</pre>"
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return "<pre>" + html.EscapeString(source) + "</pre>"
	}
	return buf.String()
}

// safeWriter is an org.HTMLWriter that refuses raw HTML and links whose
// written URL is not http, https, mailto or relative.
type safeWriter struct {
	*org.HTMLWriter
	links map[string]string
}

func (w *safeWriter) Before(d *org.Document) {
	w.links = d.Links
	w.HTMLWriter.Before(d)
}

func (w *safeWriter) WriteBlock(b org.Block) {
	switch strings.ToUpper(b.Name) {
	case "EXPORT", "HTML":
		return
	}
	w.HTMLWriter.WriteBlock(b)
}

func (w *safeWriter) WriteInlineBlock(b org.InlineBlock) {
	if strings.EqualFold(b.Name, "export") {
		return
	}
	w.HTMLWriter.WriteInlineBlock(b)
}

func (w *safeWriter) WriteKeyword(k org.Keyword) {
	if strings.EqualFold(k.Key, "HTML") {
		return
	}
	w.HTMLWriter.WriteKeyword(k)
}

func (w *safeWriter) WriteRegularLink(l org.RegularLink) {
	if !safeURL(w.resolve(l)) {
		w.WriteString(html.EscapeString(l.URL))
		return
	}
	w.HTMLWriter.WriteRegularLink(l)
}

// resolve returns the URL HTMLWriter will emit for l, after #+LINK
// abbreviations and the file: prefix are applied.
func (w *safeWriter) resolve(l org.RegularLink) string {
	target := l.URL
	if l.Protocol == "file" {
		target = strings.TrimPrefix(target, "file:")
	}
	if prefix := w.links[l.Protocol]; prefix != "" {
		tag := strings.TrimPrefix(l.URL, l.Protocol+":")
		if strings.Contains(prefix, "%s") || strings.Contains(prefix, "%h") {
			return strings.ReplaceAll(strings.ReplaceAll(prefix, "%s", tag), "%h", url.QueryEscape(tag))
		}
		return prefix + tag
	}
	if prefix := w.links[l.URL]; prefix != "" {
		return strings.ReplaceAll(strings.ReplaceAll(prefix, "%s", ""), "%h", "")
	}
	return target
}

// safeURL reports whether u is relative or uses an allowed scheme. ASCII
// control characters and spaces are removed first, as browsers do.
func safeURL(u string) bool {
	u = strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, u)

	colon := strings.IndexByte(u, ':')
	if colon < 0 {
		return true
	}
	if i := strings.IndexAny(u, "/?#"); i >= 0 && i < colon {
		return true
	}
	switch strings.ToLower(u[:colon]) {
	case "http", "https", "mailto":
		return true
	}
	return false
}
