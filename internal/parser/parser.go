// Package parser extracts title, main text, and outbound links from raw HTML.
package parser

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

const maxContextLen = 200

var reWhitespace = regexp.MustCompile(`\s+`)

// Parser turns raw HTML into a ParsedDocument. Extraction is deterministic for
// identical input, which the change detector's hash stability depends on.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts the main content and outbound links. Relative hrefs are
// resolved against baseURL; fragment-only, mailto:, and javascript: links are
// skipped.
func (p *Parser) Parse(htmlBody []byte, baseURL string) (sentry.ParsedDocument, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return sentry.ParsedDocument{}, &sentry.ParseError{URL: baseURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return sentry.ParsedDocument{}, &sentry.ParseError{URL: baseURL, Err: err}
	}

	title, contentText := p.extractContent(htmlBody, base, doc)
	links := p.extractLinks(doc, base)

	return sentry.ParsedDocument{
		Title:       title,
		ContentText: contentText,
		Links:       links,
	}, nil
}

// extractContent favors a readability pass over raw DOM text to suppress
// navigation and boilerplate noise. It falls back to the stripped document
// text when readability finds no main content.
func (p *Parser) extractContent(htmlBody []byte, base *url.URL, doc *goquery.Document) (string, string) {
	title := strings.TrimSpace(doc.Find("title").First().Text())

	article, err := readability.FromReader(bytes.NewReader(htmlBody), base)
	if err == nil {
		if article.Title != "" {
			title = article.Title
		}
		if text := normalizeText(article.TextContent); text != "" {
			return title, text
		}
	}

	stripped := doc.Clone()
	stripped.Find("script, style, nav, header, footer, aside").Remove()
	return title, normalizeText(stripped.Find("body").Text())
}

func (p *Parser) extractLinks(doc *goquery.Document, base *url.URL) []sentry.DiscoveredLink {
	var links []sentry.DiscoveredLink
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if skipHref(href) {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		target := resolved.String()
		if _, dup := seen[target]; dup {
			return
		}
		seen[target] = struct{}{}

		links = append(links, sentry.DiscoveredLink{
			URL:        target,
			AnchorText: normalizeText(sel.Text()),
			Context:    linkContext(sel),
		})
	})

	return links
}

func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:")
}

// linkContext returns a bounded excerpt of the text surrounding the anchor.
func linkContext(sel *goquery.Selection) string {
	context := normalizeText(sel.Parent().Text())
	if context == "" {
		context = normalizeText(sel.Text())
	}
	if runes := []rune(context); len(runes) > maxContextLen {
		context = string(runes[:maxContextLen])
	}
	return context
}

func normalizeText(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}
