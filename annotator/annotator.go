// Package annotator decides how the displayed callsign should be styled and
// applies that decision to a page.
package annotator

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"github.com/coreybb/callcheck/models"
)

const (
	// DefaultSelector finds the callsign heading on a QRZ lookup page.
	DefaultSelector = "span.hamcall"
	// DefaultLookupBaseURL is prefixed to a callsign to build its lookup page.
	DefaultLookupBaseURL = "https://www.qrz.com/db/"
)

// Renderer is the thin adapter between style decisions and a concrete page.
type Renderer interface {
	// DisplayedCallsign returns the trimmed text of the callsign element,
	// and false if the element is absent.
	DisplayedCallsign(ctx context.Context) (string, bool, error)
	// ApplyStyle styles the callsign element. Absent element is a no-op.
	ApplyStyle(ctx context.Context, style models.Style) error
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error
}

// StyleFor maps a logbook match to the style descriptor to apply.
func StyleFor(match bool) models.Style {
	if match {
		return models.HighlightedStyle
	}
	return models.ClearedStyle
}

// Decide returns the style for displayed given the known callsigns.
// The second result is false when there is nothing displayed to style.
func Decide(displayed string, known []string) (models.Style, bool) {
	displayed = strings.TrimSpace(displayed)
	if displayed == "" {
		return models.Style{}, false
	}
	return StyleFor(slices.Contains(known, displayed)), true
}

// LookupURL builds the lookup page address for callsign.
func LookupURL(baseURL, callsign string) string {
	if baseURL == "" {
		baseURL = DefaultLookupBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + url.PathEscape(callsign)
}

// Annotate reads the displayed callsign from r and styles it against known.
// It reports whether a style was applied.
func Annotate(ctx context.Context, r Renderer, known []string) (bool, error) {
	displayed, ok, err := r.DisplayedCallsign(ctx)
	if err != nil || !ok {
		return false, err
	}

	style, ok := Decide(displayed, known)
	if !ok {
		return false, nil
	}
	if err := r.ApplyStyle(ctx, style); err != nil {
		return false, err
	}
	return true, nil
}
