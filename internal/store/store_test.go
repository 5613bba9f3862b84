package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YangQing-Lin/hooky-cli/internal/kv"
	"github.com/YangQing-Lin/hooky-cli/internal/params"
	"github.com/YangQing-Lin/hooky-cli/internal/rules"
)

func newTestManager(t *testing.T) (*Manager, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore()
	n := 0
	m := NewManager(mem, WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id_%d", n)
	}))
	return m, mem
}

func ptr[T any](v T) *T { return &v }

func TestLoadDefaults(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	s, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.Templates)
	assert.NotNil(t, s.Templates)
	assert.Nil(t, s.ActiveTemplateID)
	assert.False(t, s.QuickSend)
	assert.Nil(t, s.QuickSendTemplateID)
	assert.Equal(t, ThemeSystem, s.Theme)

	q, err := m.QuickSend(ctx)
	require.NoError(t, err)
	assert.False(t, q)

	id, err := m.QuickSendTemplateID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	list, err := m.QuickSendRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestJSONShape(t *testing.T) {
	m, mem := newTestManager(t)
	ctx := context.Background()

	tpl, err := m.CreateTemplate(ctx, "A")
	require.NoError(t, err)

	raw, ok, err := mem.Get(ctx, StoreKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, fmt.Sprintf(`{
		"templates":[{"id":%q,"name":"A","url":"","method":"POST","params":[]}],
		"activeTemplateId":%q,
		"quickSend":false,
		"quickSendTemplateId":null,
		"quickSendRules":[],
		"theme":"system"
	}`, tpl.ID, tpl.ID), string(raw))

	// the document survives a decode/encode cycle unchanged
	var s Store
	require.NoError(t, json.Unmarshal(raw, &s))
	again, err := json.Marshal(&s)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}

func TestRulesWithoutEnabledDecodeAsEnabled(t *testing.T) {
	m, mem := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, StoreKey, json.RawMessage(`{
		"templates":[{"id":"t1","name":"A","url":"https://h.com","method":"POST","params":[]}],
		"quickSendRules":[
			{"id":"r1","field":"url","operator":"contains","value":"a","templateId":"t1"},
			{"id":"r2","field":"url","operator":"contains","value":"b","templateId":"t1","enabled":false}
		]
	}`)))

	list, err := m.QuickSendRules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Enabled)
	assert.False(t, list[1].Enabled)
}

func TestCreateTemplate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.CreateTemplate(ctx, "First")
	require.NoError(t, err)
	assert.Equal(t, Template{ID: "id_1", Name: "First", Method: "POST", Params: []params.Param{}}, first)

	active, err := m.GetActiveTemplate(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID, "first template becomes active")

	second, err := m.CreateTemplate(ctx, "Second")
	require.NoError(t, err)
	active, err = m.GetActiveTemplate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID, "second template does not steal active")

	list, err := m.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestUpdateTemplate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	tpl, err := m.CreateTemplate(ctx, "Old")
	require.NoError(t, err)

	updated, err := m.UpdateTemplate(ctx, tpl.ID, TemplatePatch{
		URL:    ptr("https://h.com/hook"),
		Params: &[]params.Param{{Key: "q", Value: "{{page.url}}"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Old", updated.Name, "only provided fields change")
	assert.Equal(t, "https://h.com/hook", updated.URL)

	got, err := m.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = m.UpdateTemplate(ctx, "missing", TemplatePatch{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = m.UpdateTemplate(ctx, tpl.ID, TemplatePatch{Method: ptr("OPTIONS")})
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be one of GET, POST, PUT, PATCH, DELETE", verr.Fields[0].Message)

	got, err = m.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "POST", got.Method, "failed update is not persisted")

	// the transport reports unusable urls at send time
	updated, err = m.UpdateTemplate(ctx, tpl.ID, TemplatePatch{URL: ptr("localhost/hook")})
	require.NoError(t, err)
	assert.Equal(t, "localhost/hook", updated.URL)
}

func TestMutationsIgnoreUnrelatedInvalidData(t *testing.T) {
	m, mem := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, StoreKey, json.RawMessage(`{
		"templates":[{"id":"t1","name":"A","url":"example.com/hook","method":"TRACE","params":[]}],
		"quickSendRules":[{"id":"r1","field":"url","operator":"matches","value":"[","templateId":"t1"}]
	}`)))

	require.NoError(t, m.SetTheme(ctx, ThemeDark))
	require.NoError(t, m.SetQuickSend(ctx, true))
	b, err := m.CreateTemplate(ctx, "B")
	require.NoError(t, err)
	_, err = m.UpdateTemplate(ctx, b.ID, TemplatePatch{URL: ptr("https://b.com")})
	require.NoError(t, err)
	_, err = m.AddQuickSendRule(ctx, RuleInput{Field: "title", Operator: "contains", Value: "x", TemplateID: b.ID})
	require.NoError(t, err)

	s, err := m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, s.Templates, 2)
	assert.Equal(t, "TRACE", s.Templates[0].Method, "foreign data is kept as is")
	assert.Equal(t, "[", s.QuickSendRules[0].Value)
	assert.Equal(t, ThemeDark, s.Theme)
}

func TestGetTemplateMissing(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.GetTemplate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestGetActiveTemplateDangling(t *testing.T) {
	m, mem := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, StoreKey, json.RawMessage(`{"templates":[],"activeTemplateId":"gone"}`)))

	active, err := m.GetActiveTemplate(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestDeleteTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("moves_active_to_first_remaining", func(t *testing.T) {
		m, _ := newTestManager(t)
		a, _ := m.CreateTemplate(ctx, "A")
		b, _ := m.CreateTemplate(ctx, "B")

		require.NoError(t, m.DeleteTemplate(ctx, a.ID))
		active, err := m.GetActiveTemplate(ctx)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, b.ID, active.ID)
	})

	t.Run("last_template_clears_active", func(t *testing.T) {
		m, _ := newTestManager(t)
		a, _ := m.CreateTemplate(ctx, "A")

		require.NoError(t, m.DeleteTemplate(ctx, a.ID))
		s, err := m.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, s.ActiveTemplateID)
		assert.Empty(t, s.Templates)
	})

	t.Run("clears_designation", func(t *testing.T) {
		m, _ := newTestManager(t)
		a, _ := m.CreateTemplate(ctx, "A")
		b, _ := m.CreateTemplate(ctx, "B")
		require.NoError(t, m.SetQuickSendTemplateID(ctx, b.ID))

		require.NoError(t, m.DeleteTemplate(ctx, a.ID))
		id, _ := m.QuickSendTemplateID(ctx)
		assert.Equal(t, b.ID, id, "other template deleted keeps designation")

		require.NoError(t, m.DeleteTemplate(ctx, b.ID))
		id, _ = m.QuickSendTemplateID(ctx)
		assert.Empty(t, id)
	})

	t.Run("cascades_rules", func(t *testing.T) {
		m, _ := newTestManager(t)
		a, _ := m.CreateTemplate(ctx, "A")
		b, _ := m.CreateTemplate(ctx, "B")
		_, err := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "github.com", TemplateID: a.ID})
		require.NoError(t, err)
		keep, err := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "gitlab.com", TemplateID: b.ID})
		require.NoError(t, err)

		require.NoError(t, m.DeleteTemplate(ctx, a.ID))
		list, _ := m.QuickSendRules(ctx)
		require.Len(t, list, 1)
		assert.Equal(t, keep.ID, list[0].ID)
	})

	t.Run("dangling_rules_from_other_ids_survive", func(t *testing.T) {
		m, mem := newTestManager(t)
		require.NoError(t, mem.Set(ctx, StoreKey, json.RawMessage(`{
			"templates":[{"id":"t1","name":"A","url":"","method":"POST","params":[]}],
			"quickSendRules":[{"id":"r1","field":"url","operator":"contains","value":"x","templateId":"other","enabled":true}]
		}`)))
		require.NoError(t, m.DeleteTemplate(ctx, "t1"))
		list, _ := m.QuickSendRules(ctx)
		require.Len(t, list, 1)
		assert.Equal(t, "other", list[0].TemplateID)
	})

	t.Run("missing", func(t *testing.T) {
		m, _ := newTestManager(t)
		assert.ErrorIs(t, m.DeleteTemplate(ctx, "nope"), ErrTemplateNotFound)
	})
}

func TestSetActiveTemplateID(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, _ = m.CreateTemplate(ctx, "A")
	b, _ := m.CreateTemplate(ctx, "B")

	require.NoError(t, m.SetActiveTemplateID(ctx, b.ID))
	active, _ := m.GetActiveTemplate(ctx)
	assert.Equal(t, b.ID, active.ID)

	assert.ErrorIs(t, m.SetActiveTemplateID(ctx, "nope"), ErrTemplateNotFound)

	require.NoError(t, m.SetActiveTemplateID(ctx, ""))
	active, _ = m.GetActiveTemplate(ctx)
	assert.Nil(t, active)
}

func TestQuickSendFlagAndDesignation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	a, _ := m.CreateTemplate(ctx, "A")

	require.NoError(t, m.SetQuickSend(ctx, true))
	on, _ := m.QuickSend(ctx)
	assert.True(t, on)

	require.NoError(t, m.SetQuickSendTemplateID(ctx, a.ID))
	require.NoError(t, m.SetQuickSend(ctx, false))
	require.NoError(t, m.SetQuickSend(ctx, true))
	id, _ := m.QuickSendTemplateID(ctx)
	assert.Equal(t, a.ID, id, "designation persists across toggles")

	assert.ErrorIs(t, m.SetQuickSendTemplateID(ctx, "nope"), ErrTemplateNotFound)

	require.NoError(t, m.SetQuickSendTemplateID(ctx, ""))
	id, _ = m.QuickSendTemplateID(ctx)
	assert.Empty(t, id)
}

func TestTheme(t *testing.T) {
	m, mem := newTestManager(t)
	ctx := context.Background()

	theme, err := m.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeSystem, theme)

	require.NoError(t, mem.Set(ctx, StoreKey, json.RawMessage(`{"templates":[],"theme":""}`)))
	theme, _ = m.Theme(ctx)
	assert.Equal(t, ThemeSystem, theme, "empty falls back to system")

	require.NoError(t, m.SetTheme(ctx, ThemeDark))
	theme, _ = m.Theme(ctx)
	assert.Equal(t, ThemeDark, theme)

	err = m.SetTheme(ctx, "neon")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "must be system, light or dark")
}

func TestQuickSendRules(t *testing.T) {
	ctx := context.Background()

	t.Run("requires_templates", func(t *testing.T) {
		m, _ := newTestManager(t)
		_, err := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "x", TemplateID: "t"})
		assert.ErrorIs(t, err, ErrNoTemplates)
	})

	t.Run("requires_existing_template", func(t *testing.T) {
		m, _ := newTestManager(t)
		_, _ = m.CreateTemplate(ctx, "A")
		_, err := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "x", TemplateID: "nope"})
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("add_with_defaults", func(t *testing.T) {
		m, _ := newTestManager(t)
		tpl, _ := m.CreateTemplate(ctx, "A")
		r, err := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "github.com", TemplateID: tpl.ID})
		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)
		assert.True(t, r.Enabled)

		disabled, err := m.AddQuickSendRule(ctx, RuleInput{Field: "title", Operator: "contains", Value: "PR", TemplateID: tpl.ID, Enabled: ptr(false)})
		require.NoError(t, err)
		assert.False(t, disabled.Enabled)

		list, _ := m.QuickSendRules(ctx)
		require.Len(t, list, 2)
		assert.Equal(t, "github.com", list[0].Value)
		assert.Equal(t, "PR", list[1].Value)
	})

	t.Run("add_validates", func(t *testing.T) {
		m, _ := newTestManager(t)
		tpl, _ := m.CreateTemplate(ctx, "A")
		cases := []RuleInput{
			{Field: "body", Operator: "contains", Value: "x", TemplateID: tpl.ID},
			{Field: "url", Operator: "like", Value: "x", TemplateID: tpl.ID},
			{Field: "url", Operator: "matches", Value: "(", TemplateID: tpl.ID},
			{Field: "url", Operator: "contains", Value: "x"},
		}
		for _, in := range cases {
			_, err := m.AddQuickSendRule(ctx, in)
			assert.ErrorIs(t, err, ErrValidation, "%+v", in)
		}
		list, _ := m.QuickSendRules(ctx)
		assert.Empty(t, list)
	})

	t.Run("update", func(t *testing.T) {
		m, _ := newTestManager(t)
		tpl, _ := m.CreateTemplate(ctx, "A")
		r, _ := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "github.com", TemplateID: tpl.ID})

		updated, err := m.UpdateQuickSendRule(ctx, r.ID, RulePatch{Value: ptr("gitlab.com"), Operator: ptr(rules.OpStartsWith)})
		require.NoError(t, err)
		assert.Equal(t, "gitlab.com", updated.Value)
		assert.Equal(t, rules.OpStartsWith, updated.Operator)
		assert.Equal(t, "url", updated.Field, "unchanged")

		_, err = m.UpdateQuickSendRule(ctx, r.ID, RulePatch{Enabled: ptr(false)})
		require.NoError(t, err)
		list, _ := m.QuickSendRules(ctx)
		assert.False(t, list[0].Enabled)

		_, err = m.UpdateQuickSendRule(ctx, "nonexistent", RulePatch{Value: ptr("x")})
		assert.ErrorIs(t, err, ErrRuleNotFound)

		_, err = m.UpdateQuickSendRule(ctx, r.ID, RulePatch{TemplateID: ptr("nope")})
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		m, _ := newTestManager(t)
		tpl, _ := m.CreateTemplate(ctx, "A")
		r1, _ := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "github.com", TemplateID: tpl.ID})
		r2, _ := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "gitlab.com", TemplateID: tpl.ID})

		require.NoError(t, m.DeleteQuickSendRule(ctx, r1.ID))
		list, _ := m.QuickSendRules(ctx)
		require.Len(t, list, 1)
		assert.Equal(t, r2.ID, list[0].ID)

		assert.ErrorIs(t, m.DeleteQuickSendRule(ctx, r1.ID), ErrRuleNotFound)
	})

	t.Run("reorder", func(t *testing.T) {
		m, _ := newTestManager(t)
		tpl, _ := m.CreateTemplate(ctx, "A")
		r1, _ := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "a.com", TemplateID: tpl.ID})
		r2, _ := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "b.com", TemplateID: tpl.ID})
		r3, _ := m.AddQuickSendRule(ctx, RuleInput{Field: "url", Operator: "contains", Value: "c.com", TemplateID: tpl.ID})

		require.NoError(t, m.ReorderQuickSendRules(ctx, []string{r3.ID, r1.ID, r2.ID}))
		list, _ := m.QuickSendRules(ctx)
		assert.Equal(t, []string{"c.com", "a.com", "b.com"}, values(list))

		// unlisted rules keep their relative order at the end
		require.NoError(t, m.ReorderQuickSendRules(ctx, []string{r2.ID}))
		list, _ = m.QuickSendRules(ctx)
		assert.Equal(t, []string{"b.com", "c.com", "a.com"}, values(list))

		assert.ErrorIs(t, m.ReorderQuickSendRules(ctx, []string{"nope"}), ErrRuleNotFound)
		list, _ = m.QuickSendRules(ctx)
		assert.Equal(t, []string{"b.com", "c.com", "a.com"}, values(list))
	})
}

func values(list []rules.Rule) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.Value)
	}
	return out
}

func TestValidateStoreRejectsDuplicateIDs(t *testing.T) {
	s := Default()
	s.Templates = []Template{{ID: "a"}, {ID: "a"}}
	err := ValidateStore(s)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "duplicate id a")
}

func TestValidationFieldNames(t *testing.T) {
	s := Default()
	s.Templates = []Template{{ID: "a", URL: "nope", Method: "TRACE"}}
	s.QuickSendRules = []rules.Rule{{ID: "r", Field: "url", Operator: "matches", Value: "[", TemplateID: "a"}}

	err := ValidateStore(s)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, FieldError{Field: "Store.Templates[0].Method", Message: "must be one of GET, POST, PUT, PATCH, DELETE"}, verr.Fields[0])
	assert.Equal(t, FieldError{Field: "Store.QuickSendRules[0].Value", Message: "is not a valid regular expression"}, verr.Fields[1])
}
