// internal/head/builder.go
//
// The Builder collects everything that should appear inside the form page's
// <head> element.  It is scoped to a single render call: the renderer pushes
// the charset, viewport, and (while a submission is in flight) the refresh
// tag, then emits the lot with Render.
//
// Features
// --------
//   - SetTitle   – single <title> tag (last call wins).
//   - Meta       – raw tags, deduplicated on their exact text.
//   - Refresh    – <meta http-equiv="refresh"> helper, last call wins.
package head

import (
	"html/template"
	"strconv"
	"strings"
)

// Builder is not safe for concurrent use; build one per render.
type Builder struct {
	title   string
	refresh int

	metas []string
	seen  map[string]struct{}
}

func New() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// SetTitle overrides the page <title>.  Text is escaped on output.
func (b *Builder) SetTitle(t string) { b.title = t }

// Refresh asks the browser to reload after secs seconds.  Zero disables it.
func (b *Builder) Refresh(secs int) { b.refresh = secs }

// Meta adds a pre-escaped tag once.
func (b *Builder) Meta(tag string) {
	if _, dup := b.seen[tag]; dup {
		return
	}
	b.seen[tag] = struct{}{}
	b.metas = append(b.metas, tag)
}

// Render returns the <head> contents, one tag per line: metas, refresh,
// then title.
func (b *Builder) Render() template.HTML {
	var sb strings.Builder
	for _, m := range b.metas {
		sb.WriteString(m + "\n")
	}
	if b.refresh > 0 {
		sb.WriteString(`<meta http-equiv="refresh" content="` + strconv.Itoa(b.refresh) + `">` + "\n")
	}
	if b.title != "" {
		sb.WriteString("<title>" + template.HTMLEscapeString(b.title) + "</title>\n")
	}
	return template.HTML(sb.String())
}
