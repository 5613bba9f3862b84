package pagecontext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxDocument caps how much of a page is read for extraction.
const maxDocument = 2 << 20

// HTTPExtractor fetches the tab URL and reads title and meta tags from the
// returned HTML.
type HTTPExtractor struct {
	client *resty.Client
}

// NewHTTPExtractor creates an extractor; timeout <= 0 means no timeout.
func NewHTTPExtractor(timeout time.Duration) *HTTPExtractor {
	client := resty.New().SetHeader("Accept", "text/html,application/xhtml+xml")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPExtractor{client: client}
}

// Extract implements Extractor.
func (e *HTTPExtractor) Extract(ctx context.Context, tab Tab) (*Page, error) {
	if tab.URL == "" {
		return nil, fmt.Errorf("tab has no url")
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(tab.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", tab.URL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch %s: status %d", tab.URL, resp.StatusCode())
	}

	finalURL := tab.URL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	page, err := ParseHTML(io.LimitReader(body, maxDocument))
	if err != nil {
		return nil, err
	}
	page.URL = finalURL
	return page, nil
}

// ParseHTML reads the document title, meta[name=description] and every
// meta[property^="og:"] with non-empty content.
func ParseHTML(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{Meta: map[string]string{}}
	descriptionSeen := false

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if page.Title == "" {
					page.Title = strings.TrimSpace(textContent(n))
				}
			case atom.Meta:
				name, property, content := attr(n, "name"), attr(n, "property"), attr(n, "content")
				if strings.EqualFold(name, "description") && !descriptionSeen {
					// the first description wins, even when empty
					page.Meta["description"] = content
					descriptionSeen = true
				}
				if strings.HasPrefix(property, "og:") && content != "" {
					page.Meta[property] = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return page, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

// StaticExtractor returns a page supplied up front (command-line flags or
// an API payload). With a Base extractor it overlays its non-empty fields
// on the base result instead.
type StaticExtractor struct {
	Page Page
	Base Extractor
}

// Extract implements Extractor.
func (s StaticExtractor) Extract(ctx context.Context, tab Tab) (*Page, error) {
	page := &Page{URL: tab.URL, Title: tab.Title, Meta: map[string]string{}}
	if s.Base != nil {
		base, err := s.Base.Extract(ctx, tab)
		if err != nil {
			return nil, err
		}
		if base != nil {
			page = base
			if page.Meta == nil {
				page.Meta = map[string]string{}
			}
		}
	}

	if s.Page.URL != "" {
		page.URL = s.Page.URL
	}
	if s.Page.Title != "" {
		page.Title = s.Page.Title
	}
	if s.Page.Selection != "" {
		page.Selection = s.Page.Selection
	}
	for k, v := range s.Page.Meta {
		page.Meta[k] = v
	}
	return page, nil
}
