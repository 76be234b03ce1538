// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package richtext converts between GitHub-flavored markdown and the
// HTML subset ideas and comments are stored in, and sanitizes that
// HTML before it is published anywhere.
//
// Markdown is rendered with goldmark (GFM extensions, raw HTML
// disabled). Every HTML string that enters or leaves passes through a
// bluemonday user-content policy. HTML is turned back into markdown by
// html-to-markdown with fenced code blocks.
package richtext

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Converter implements feedback.RichText. The zero value is not
// usable; call New. A Converter is safe for concurrent use.
type Converter struct {
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy
	converter *htmltomarkdown.Converter
}

// New returns a Converter.
func New() *Converter {
	policy := bluemonday.UGCPolicy()
	// GitHub applies its own link policy to issue bodies.
	policy.RequireNoFollowOnLinks(false)

	return &Converter{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		policy: policy,
		converter: htmltomarkdown.NewConverter("", true, &htmltomarkdown.Options{
			CodeBlockStyle: "fenced",
			EmDelimiter:    "_",
		}),
	}
}

// MarkdownToHTML renders markdown and sanitizes the result.
func (c *Converter) MarkdownToHTML(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	var buffer bytes.Buffer
	if err := c.markdown.Convert([]byte(markdown), &buffer); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return c.Sanitize(buffer.String()), nil
}

// HTMLToMarkdown sanitizes stored HTML and converts it to GitHub
// markdown.
func (c *Converter) HTMLToMarkdown(content string) (string, error) {
	markdown, err := c.converter.ConvertString(c.Sanitize(content))
	if err != nil {
		return "", fmt.Errorf("converting html: %w", err)
	}
	return tidy(markdown), nil
}

// Sanitize keeps only elements and attributes allowed in user
// content. Scripts and styles are removed with their content, other
// disallowed elements are replaced by their children, and links and
// images keep only http, https, mailto, and relative URLs.
func (c *Converter) Sanitize(content string) string {
	return c.policy.Sanitize(content)
}

var (
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	trailingSpaces   = regexp.MustCompile(`[ \t]+\n`)
)

// tidy drops trailing whitespace (keeping two-space hard breaks) and
// collapses runs of blank lines.
func tidy(markdown string) string {
	markdown = trailingSpaces.ReplaceAllStringFunc(markdown, func(match string) string {
		if match == "  \n" {
			return match
		}
		return "\n"
	})
	markdown = excessBlankLines.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown)
}
