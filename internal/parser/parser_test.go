package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Grid Storage Weekly</title></head>
<body>
<nav><a href="/home">Home</a></nav>
<article>
<h1>Grid Storage Weekly</h1>
<p>Utility announces a new 400MWh battery site.
Details in the <a href="/reports/2024">annual report</a> and the
<a href="https://other.example.org/analysis?page=2#section">external analysis</a>.</p>
<p>Contact <a href="mailto:desk@example.com">the desk</a> or
<a href="javascript:void(0)">expand</a> or <a href="#top">back to top</a>.</p>
</article>
<footer>footer boilerplate</footer>
</body>
</html>`

func TestParseExtractsTitleAndContent(t *testing.T) {
	t.Parallel()

	p := New()
	doc, err := p.Parse([]byte(samplePage), "https://example.com/news/")
	require.NoError(t, err)

	require.Equal(t, "Grid Storage Weekly", doc.Title)
	require.Contains(t, doc.ContentText, "400MWh battery site")
}

func TestParseDeterministicForIdenticalInput(t *testing.T) {
	t.Parallel()

	p := New()
	first, err := p.Parse([]byte(samplePage), "https://example.com/news/")
	require.NoError(t, err)
	second, err := p.Parse([]byte(samplePage), "https://example.com/news/")
	require.NoError(t, err)

	require.Equal(t, first.ContentText, second.ContentText)
	require.Equal(t, first.Title, second.Title)
}

func TestParseResolvesAndFiltersLinks(t *testing.T) {
	t.Parallel()

	p := New()
	doc, err := p.Parse([]byte(samplePage), "https://example.com/news/")
	require.NoError(t, err)

	urls := make(map[string]bool)
	for _, l := range doc.Links {
		urls[l.URL] = true
	}

	require.True(t, urls["https://example.com/home"], "relative href must resolve against base")
	require.True(t, urls["https://example.com/reports/2024"])
	require.True(t, urls["https://other.example.org/analysis?page=2"], "fragment must be stripped")

	for u := range urls {
		require.NotContains(t, u, "mailto:")
		require.NotContains(t, u, "javascript:")
		require.NotContains(t, u, "#")
	}
}

func TestParseCapturesAnchorAndContext(t *testing.T) {
	t.Parallel()

	p := New()
	doc, err := p.Parse([]byte(samplePage), "https://example.com/news/")
	require.NoError(t, err)

	var report *struct{ anchor, context string }
	for _, l := range doc.Links {
		if l.URL == "https://example.com/reports/2024" {
			report = &struct{ anchor, context string }{l.AnchorText, l.Context}
		}
	}
	require.NotNil(t, report)
	require.Equal(t, "annual report", report.anchor)
	require.Contains(t, report.context, "battery site")
	require.LessOrEqual(t, len([]rune(report.context)), 200)
}

func TestParseContextBounded(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 200)
	html := `<html><body><p>` + long + `<a href="/x">link</a>` + long + `</p></body></html>`

	p := New()
	doc, err := p.Parse([]byte(html), "https://example.com/")
	require.NoError(t, err)
	require.Len(t, doc.Links, 1)
	require.LessOrEqual(t, len([]rune(doc.Links[0].Context)), 200)
}

func TestParseInvalidBaseURL(t *testing.T) {
	t.Parallel()

	p := New()
	_, err := p.Parse([]byte("<html></html>"), "http://example.com/%zz")
	require.Error(t, err)
}
