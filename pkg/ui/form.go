package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/example/pluginhost/pkg/types"
)

// FormMarkdown renders a resolved input form as markdown.
func FormMarkdown(prop *types.Property) string {
	var b strings.Builder
	if prop == nil {
		b.WriteString("_This operator has no inputs._\n")
		return b.String()
	}
	if v := prop.View; v != nil && v.Label != "" {
		fmt.Fprintf(&b, "# %s\n\n", v.Label)
		if v.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", v.Description)
		}
	}
	if prop.Object != nil {
		writeObject(&b, prop.Object, 0)
	}
	return b.String()
}

func writeObject(b *strings.Builder, obj *types.Object, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, p := range obj.Properties {
		switch {
		case p.Kind == types.KindVoid:
			writeView(b, indent, p)
		case p.View != nil && p.View.Component == types.ComponentCode:
			fmt.Fprintf(b, "%s- `%s` %s\n\n", indent, p.Name, p.Label)
			fmt.Fprintf(b, "```%s\n%s\n```\n\n", p.View.Language, strings.TrimRight(fmt.Sprint(p.Default), "\n"))
		case p.Kind == types.KindObject && p.Object != nil:
			fmt.Fprintf(b, "%s- `%s`%s\n", indent, p.Name, optional(" ", p.Label))
			writeObject(b, p.Object, depth+1)
		default:
			writeField(b, indent, p)
		}
	}
}

func writeView(b *strings.Builder, indent string, p *types.Property) {
	v := p.View
	if v == nil {
		return
	}
	text := v.Label + optional(": ", v.Description)
	switch v.Component {
	case types.ComponentHeader:
		fmt.Fprintf(b, "\n%s## %s\n\n", indent, v.Label)
		if v.Description != "" {
			fmt.Fprintf(b, "%s%s\n\n", indent, v.Description)
		}
	case types.ComponentWarning:
		fmt.Fprintf(b, "%s> **Warning** %s\n\n", indent, text)
	case types.ComponentError:
		fmt.Fprintf(b, "%s> **Error** %s\n\n", indent, text)
	case types.ComponentSuccess:
		fmt.Fprintf(b, "%s> **Success** %s\n\n", indent, text)
	case types.ComponentNotice, types.ComponentMessage:
		fmt.Fprintf(b, "%s> %s\n\n", indent, text)
	default:
		if text != "" {
			fmt.Fprintf(b, "%s%s\n\n", indent, text)
		}
	}
}

func writeField(b *strings.Builder, indent string, p *types.Property) {
	kind := string(p.Kind)
	if p.Required {
		kind += ", required"
	}
	fmt.Fprintf(b, "%s- `%s` (%s)%s%s", indent, p.Name, kind, optional(" ", p.Label), optional(": ", p.Description))
	if p.Invalid {
		b.WriteString(" **invalid**")
	}
	b.WriteString("\n")

	var details []string
	if len(p.Values) > 0 {
		details = append(details, "choices: "+strings.Join(p.Values, ", "))
	}
	if p.Default != nil {
		details = append(details, "default: "+formatValue(p.Default))
	}
	for _, d := range details {
		fmt.Fprintf(b, "%s  - %s\n", indent, d)
	}
}

func optional(sep, s string) string {
	if s == "" {
		return ""
	}
	return sep + s
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case bool, int, int64, float64:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// RenderForm writes the form to w. Terminals get glamour-styled output;
// anything else gets the raw markdown.
func RenderForm(w io.Writer, prop *types.Property) error {
	md := FormMarkdown(prop)
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, md)
		return err
	}

	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render form: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
