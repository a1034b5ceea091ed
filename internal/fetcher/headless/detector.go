package headless

import (
	"bytes"
	"strings"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Detector decides when a probe fetch should be retried with a renderer.
type Detector struct {
	BodyLengthThreshold int
}

// NewDetector creates a detector. threshold is the body size below which a
// script-dense page is considered a JavaScript shell.
func NewDetector(threshold int) *Detector {
	if threshold == 0 {
		threshold = 2048
	}
	return &Detector{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
}

// ShouldRender reports whether the probe result looks like an unrendered SPA.
func (d *Detector) ShouldRender(probe sentry.FetchResult) bool {
	if probe.StatusCode != 200 || probe.Rendered {
		return false
	}
	body := probe.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < d.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Treat the rest of the document as part of the malformed script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		if relativeEnd == -1 {
			scriptCoverage += total - start
			break
		}
		end := contentStart + relativeEnd + len(closeTag)
		scriptCoverage += end - start
		searchPos = end
	}

	return float64(scriptCoverage)/float64(total) > 0.5
}
