package utils

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderHTML converts Markdown (with pipe tables) to an HTML fragment.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderPage wraps RenderHTML output in a minimal standalone document.
func RenderPage(title, md string) (string, error) {
	body, err := RenderHTML(md)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("</body></html>\n")
	return b.String(), nil
}

// TableRow renders one Markdown pipe-table row, escaping pipes in cells.
func TableRow(cells ...string) string {
	esc := make([]string, len(cells))
	for i, c := range cells {
		esc[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return "| " + strings.Join(esc, " | ") + " |\n"
}

// TableRule renders the separator line under a header of n columns.
func TableRule(n int) string {
	return "|" + strings.Repeat("---|", n) + "\n"
}
