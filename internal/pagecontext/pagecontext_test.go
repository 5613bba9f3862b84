package pagecontext

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YangQing-Lin/hooky-cli/internal/template"
)

type stubExtractor struct {
	page  *Page
	err   error
	calls int
}

func (s *stubExtractor) Extract(context.Context, Tab) (*Page, error) {
	s.calls++
	return s.page, s.err
}

func TestProviderFallbacks(t *testing.T) {
	tab := &Tab{ID: 7, URL: "https://e.com", Title: "E"}
	want := Context{Page: Page{URL: "https://e.com", Title: "E", Meta: map[string]string{}}}

	cases := []struct {
		name      string
		tab       *Tab
		extractor Extractor
		want      Context
	}{
		{"nil_tab", nil, &stubExtractor{}, Context{Page: Page{Meta: map[string]string{}}}},
		{"tab_without_id", &Tab{URL: "https://e.com", Title: "E"}, &stubExtractor{page: &Page{Title: "other"}}, want},
		{"no_extractor", tab, nil, want},
		{"extractor_error", tab, &stubExtractor{err: errors.New("denied")}, want},
		{"extractor_nil_page", tab, &stubExtractor{}, want},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProvider(tc.extractor, nil)
			assert.Equal(t, tc.want, p.PageContext(context.Background(), tc.tab))
		})
	}
}

func TestProviderUsesExtractedPage(t *testing.T) {
	ex := &stubExtractor{page: &Page{URL: "https://e.com/a", Title: "Full", Selection: "sel"}}
	got := NewProvider(ex, nil).PageContext(context.Background(), &Tab{ID: 1, URL: "https://e.com"})

	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, "Full", got.Page.Title)
	assert.Equal(t, "sel", got.Page.Selection)
	assert.NotNil(t, got.Page.Meta)
}

func TestVarsResolve(t *testing.T) {
	c := Context{Page: Page{
		URL:   "https://e.com",
		Title: "X",
		Meta:  map[string]string{"og:title": "OG", "description": "D"},
	}}
	vars := c.Vars()

	assert.Equal(t, "Hi X", template.Resolve("Hi {{page.title}}", vars))
	assert.Equal(t, "OG", template.Resolve("{{ page.meta.og:title }}", vars))
	assert.Equal(t, "", template.Resolve("{{page.selection}}", vars))
	assert.Equal(t, "", template.Resolve("{{page.meta.missing}}", vars))

	assert.Equal(t, "https://e.com", c.RulePage().URL)
	assert.Equal(t, "X", c.RulePage().Title)
}

const sampleHTML = `<!doctype html>
<html><head>
  <title> Example Page </title>
  <meta name="description" content="A page">
  <meta name="description" content="second">
  <meta property="og:title" content="OG Title">
  <meta property="og:image" content="">
  <meta property="twitter:card" content="summary">
</head><body><p>hi</p></body></html>`

func TestParseHTML(t *testing.T) {
	page, err := ParseHTML(strings.NewReader(sampleHTML))
	require.NoError(t, err)
	assert.Equal(t, "Example Page", page.Title)
	assert.Equal(t, map[string]string{
		"description": "A page",
		"og:title":    "OG Title",
	}, page.Meta)
}

func TestParseHTMLWithoutHead(t *testing.T) {
	page, err := ParseHTML(strings.NewReader("plain text"))
	require.NoError(t, err)
	assert.Empty(t, page.Title)
	assert.Empty(t, page.Meta)
}

func TestHTTPExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/page", http.StatusFound)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(sampleHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ex := NewHTTPExtractor(5 * time.Second)

	t.Run("follows_redirect", func(t *testing.T) {
		page, err := ex.Extract(context.Background(), Tab{ID: 1, URL: srv.URL + "/old"})
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/page", page.URL)
		assert.Equal(t, "Example Page", page.Title)
		assert.Equal(t, "OG Title", page.Meta["og:title"])
	})

	t.Run("status_error", func(t *testing.T) {
		_, err := ex.Extract(context.Background(), Tab{ID: 1, URL: srv.URL + "/missing"})
		assert.Error(t, err)
	})

	t.Run("no_url", func(t *testing.T) {
		_, err := ex.Extract(context.Background(), Tab{ID: 1})
		assert.Error(t, err)
	})

	t.Run("provider_degrades", func(t *testing.T) {
		tab := &Tab{ID: 1, URL: srv.URL + "/missing", Title: "Tab title"}
		got := NewProvider(ex, nil).PageContext(context.Background(), tab)
		assert.Equal(t, "Tab title", got.Page.Title)
	})
}

func TestStaticExtractor(t *testing.T) {
	tab := Tab{ID: 1, URL: "https://e.com", Title: "Tab"}

	t.Run("alone", func(t *testing.T) {
		page, err := StaticExtractor{Page: Page{Selection: "hello", Meta: map[string]string{"k": "v"}}}.Extract(context.Background(), tab)
		require.NoError(t, err)
		assert.Equal(t, &Page{URL: "https://e.com", Title: "Tab", Selection: "hello", Meta: map[string]string{"k": "v"}}, page)
	})

	t.Run("overlays_base", func(t *testing.T) {
		base := &stubExtractor{page: &Page{URL: "https://e.com/final", Title: "Fetched", Meta: map[string]string{"og:title": "OG"}}}
		page, err := StaticExtractor{Page: Page{Title: "Override", Meta: map[string]string{"k": "v"}}, Base: base}.Extract(context.Background(), tab)
		require.NoError(t, err)
		assert.Equal(t, "https://e.com/final", page.URL)
		assert.Equal(t, "Override", page.Title)
		assert.Equal(t, map[string]string{"og:title": "OG", "k": "v"}, page.Meta)
	})

	t.Run("base_error", func(t *testing.T) {
		_, err := StaticExtractor{Base: &stubExtractor{err: errors.New("x")}}.Extract(context.Background(), tab)
		assert.Error(t, err)
	})
}
