// Package pagecontext produces the page variables templates are resolved
// against. Extraction may fail; the provider then degrades to what the tab
// handle itself carries.
package pagecontext

import (
	"context"

	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/rules"
)

// Tab is the coarse handle a trigger starts from. ID 0 means there is no
// page to extract from.
type Tab struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Page is the extracted page record.
type Page struct {
	URL       string            `json:"url"`
	Title     string            `json:"title"`
	Selection string            `json:"selection"`
	Meta      map[string]string `json:"meta"`
}

// Context wraps a page the way templates address it: {{page.title}}.
type Context struct {
	Page Page `json:"page"`
}

// Vars converts the context into the resolver's namespace.
func (c Context) Vars() map[string]any {
	meta := make(map[string]any, len(c.Page.Meta))
	for k, v := range c.Page.Meta {
		meta[k] = v
	}
	return map[string]any{
		"page": map[string]any{
			"url":       c.Page.URL,
			"title":     c.Page.Title,
			"selection": c.Page.Selection,
			"meta":      meta,
		},
	}
}

// RulePage returns the attributes rules are evaluated on.
func (c Context) RulePage() rules.Page {
	return rules.Page{URL: c.Page.URL, Title: c.Page.Title}
}

// Fallback builds a context from the tab handle alone.
func Fallback(tab *Tab) Context {
	page := Page{Meta: map[string]string{}}
	if tab != nil {
		page.URL = tab.URL
		page.Title = tab.Title
	}
	return Context{Page: page}
}

// Extractor reads the fine-grained page record for a tab.
type Extractor interface {
	Extract(ctx context.Context, tab Tab) (*Page, error)
}

// Provider hands out page contexts and never fails.
type Provider struct {
	extractor Extractor
	log       *zap.Logger
}

// NewProvider creates a provider; a nil extractor always falls back.
func NewProvider(extractor Extractor, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{extractor: extractor, log: log}
}

// PageContext extracts the page for tab, or falls back to the tab's own URL
// and title when there is no tab, no extractor, or extraction fails.
func (p *Provider) PageContext(ctx context.Context, tab *Tab) Context {
	if tab == nil || tab.ID == 0 || p.extractor == nil {
		return Fallback(tab)
	}

	page, err := p.extractor.Extract(ctx, *tab)
	if err != nil {
		p.log.Debug("page extraction failed, using tab info", zap.String("url", tab.URL), zap.Error(err))
		return Fallback(tab)
	}
	if page == nil {
		return Fallback(tab)
	}
	if page.Meta == nil {
		page.Meta = map[string]string{}
	}
	return Context{Page: *page}
}
