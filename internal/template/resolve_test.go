package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func pageCtx(page map[string]any) map[string]any {
	return map[string]any{"page": page}
}

func TestResolve(t *testing.T) {
	ctx := pageCtx(map[string]any{
		"url":       "https://example.com/a",
		"title":     "Example",
		"selection": "",
		"meta": map[string]string{
			"description": "desc",
			"og:title":    "OG Title",
		},
		"count": float64(3),
		"big":   1e21,
		"tags":  []any{"a", "b"},
		"flag":  true,
		"nested": map[string]any{
			"obj": map[string]any{"k": "v"},
		},
	})

	cases := []struct {
		name string
		tmpl string
		want string
	}{
		{"simple", "Hi {{page.title}}", "Hi Example"},
		{"whitespace_inside_braces", "{{  page.url  }}", "https://example.com/a"},
		{"colon_segment", "{{page.meta.og:title}}", "OG Title"},
		{"multiple", "{{page.title}} - {{page.url}}!", "Example - https://example.com/a!"},
		{"unknown_path", "x{{page.nope}}y", "xy"},
		{"through_non_object", "{{page.title.length}}", ""},
		{"through_missing", "{{page.missing.deep}}", ""},
		{"empty_string_value", "[{{page.selection}}]", "[]"},
		{"number", "{{page.count}}", "3"},
		{"large_number_plain_decimal", "{{page.big}}", "1000000000000000000000"},
		{"bool", "{{page.flag}}", "true"},
		{"slice", "{{page.tags}}", "a,b"},
		{"slice_index", "{{page.tags.1}}", "b"},
		{"slice_bad_index", "{{page.tags.9}}", ""},
		{"map_value", "{{page.nested.obj}}", `{"k":"v"}`},
		{"malformed_left", "{{page.title}", "{{page.title}"},
		{"malformed_right", "{page.title}}", "{page.title}}"},
		{"no_placeholders", "plain text", "plain text"},
		{"empty_template", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.tmpl, ctx))
		})
	}
}

func TestResolveNilContext(t *testing.T) {
	assert.Equal(t, "a  b", Resolve("a {{page.url}} b", nil))
}

func TestResolveScenarioA(t *testing.T) {
	got := Resolve("Hi {{page.title}}", pageCtx(map[string]any{"title": "X"}))
	assert.Equal(t, "Hi X", got)
}

func TestResolveIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		title := rapid.String().Draw(t, "title")
		prefix := rapid.StringMatching(`[a-zA-Z ]{0,10}`).Draw(t, "prefix")
		path := rapid.SampledFrom([]string{"page.title", "page.url", "page.meta.x", "nope"}).Draw(t, "path")

		ctx := pageCtx(map[string]any{"title": title, "url": "u", "meta": map[string]any{"x": "y"}})
		tmpl := prefix + "{{" + path + "}}"

		first := Resolve(tmpl, ctx)
		second := Resolve(tmpl, ctx)
		if first != second {
			t.Fatalf("resolve not deterministic: %q vs %q", first, second)
		}
	})
}

func TestResolveLiteralTextPreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 .,:/-]{0,30}`).Draw(t, "text")
		if got := Resolve(text, nil); got != text {
			t.Fatalf("expected literal %q to survive, got %q", text, got)
		}
	})
}
