package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// htmlWriter keeps the first write error so components can write sequentially.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.w)
	}
}

// Layout wraps body in the shared email shell.
func Layout(title, preheader string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.text(title)
		h.raw(`</title></head><body style="margin:0;padding:0;background:#f4f5f7;font-family:Helvetica,Arial,sans-serif;color:#1f2933;">`)
		h.raw(`<div style="display:none;max-height:0;overflow:hidden;">`)
		h.text(preheader)
		h.raw(`</div><table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:24px;">`)
		h.raw(`<table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">`)
		h.raw(`<tr><td><h1 style="font-size:20px;margin:0 0 16px;">`)
		h.text(title)
		h.raw(`</h1>`)
		h.component(ctx, body)
		h.raw(`</td></tr></table></td></tr></table></body></html>`)
		return h.err
	})
}

// Paragraph renders escaped text.
func Paragraph(text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<p style="font-size:15px;line-height:22px;margin:0 0 16px;">`)
		h.text(text)
		h.raw(`</p>`)
		return h.err
	})
}

// Button renders a call-to-action link. Unsafe URL schemes are neutralised by templ.URL.
func Button(href, label string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if href == "" {
			return nil
		}
		h := &htmlWriter{w: w}
		h.raw(`<p style="margin:24px 0;"><a href="`)
		h.text(string(templ.URL(href)))
		h.raw(`" style="background:#2563eb;color:#ffffff;text-decoration:none;padding:12px 20px;border-radius:6px;display:inline-block;">`)
		h.text(label)
		h.raw(`</a></p>`)
		return h.err
	})
}

// Row is a label/value line in a Details table.
type Row struct {
	Label string
	Value string
}

// Details renders rows as a two-column table, skipping empty values.
func Details(rows ...Row) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<table role="presentation" cellpadding="0" cellspacing="0" style="margin:0 0 16px;font-size:15px;">`)
		for _, r := range rows {
			if r.Value == "" {
				continue
			}
			h.raw(`<tr><td style="padding:4px 16px 4px 0;color:#52606d;">`)
			h.text(r.Label)
			h.raw(`</td><td style="padding:4px 0;">`)
			h.text(r.Value)
			h.raw(`</td></tr>`)
		}
		h.raw(`</table>`)
		return h.err
	})
}

// Stack renders components in order.
func Stack(items ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		for _, c := range items {
			h.component(ctx, c)
		}
		return h.err
	})
}

// DisplayName title-cases a person or organisation name for greetings.
// An empty name becomes "there", as in "Hi there".
func DisplayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "there"
	}
	// Casers are stateful, so one per call.
	return cases.Title(language.English).String(name)
}
