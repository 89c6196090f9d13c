package annotator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/coreybb/callcheck/models"
)

// applyStyleJS sets each [property, value] pair on the element's inline style.
const applyStyleJS = `(props) => { for (const [k, v] of props) this.style.setProperty(k, v) }`

// RodRenderer drives a live browser tab over the DevTools protocol.
type RodRenderer struct {
	browser  *rod.Browser
	page     *rod.Page
	selector string
}

// NewRodRenderer wraps an already attached page.
func NewRodRenderer(page *rod.Page, selector string) *RodRenderer {
	if selector == "" {
		selector = DefaultSelector
	}
	return &RodRenderer{page: page, selector: selector}
}

// ConnectRod attaches to the browser at controlURL, or launches a local one
// when controlURL is empty. It reuses the first tab whose URL starts with
// lookupBaseURL and opens a new tab on lookupBaseURL otherwise.
func ConnectRod(ctx context.Context, controlURL, lookupBaseURL, selector string) (*RodRenderer, error) {
	if lookupBaseURL == "" {
		lookupBaseURL = DefaultLookupBaseURL
	}
	if controlURL == "" {
		u, err := launcher.New().Headless(false).Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser at %s: %w", controlURL, err)
	}

	page, err := findLookupPage(browser, lookupBaseURL)
	if err != nil {
		_ = browser.Close()
		return nil, err
	}
	if page == nil {
		page, err = browser.Context(ctx).Page(proto.TargetCreateTarget{URL: lookupBaseURL})
		if err != nil {
			_ = browser.Close()
			return nil, fmt.Errorf("failed to open lookup tab: %w", err)
		}
		log.Printf("INFO (RodRenderer): Opened lookup tab at %s", lookupBaseURL)
	}

	r := NewRodRenderer(page, selector)
	r.browser = browser
	return r, nil
}

func findLookupPage(browser *rod.Browser, lookupBaseURL string) (*rod.Page, error) {
	pages, err := browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to list browser tabs: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.HasPrefix(info.URL, lookupBaseURL) {
			return p, nil
		}
	}
	return nil, nil
}

func (r *RodRenderer) DisplayedCallsign(ctx context.Context) (string, bool, error) {
	has, el, err := r.page.Context(ctx).Has(r.selector)
	if err != nil {
		return "", false, fmt.Errorf("failed to query %s: %w", r.selector, err)
	}
	if !has {
		return "", false, nil
	}
	text, err := el.Text()
	if err != nil {
		return "", false, fmt.Errorf("failed to read callsign text: %w", err)
	}
	return strings.TrimSpace(text), true, nil
}

func (r *RodRenderer) ApplyStyle(ctx context.Context, style models.Style) error {
	has, el, err := r.page.Context(ctx).Has(r.selector)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", r.selector, err)
	}
	if !has {
		return nil
	}
	if _, err := el.Eval(applyStyleJS, style.Properties()); err != nil {
		return fmt.Errorf("failed to apply style: %w", err)
	}
	return nil
}

func (r *RodRenderer) Navigate(ctx context.Context, url string) error {
	page := r.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}
	return nil
}

// Close disconnects from a browser opened by ConnectRod.
func (r *RodRenderer) Close() error {
	if r.browser == nil {
		return nil
	}
	return r.browser.Close()
}
