package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YangQing-Lin/hooky-cli/internal/params"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("legacy_to_template", func(t *testing.T) {
		m, mem := newTestManager(t)
		require.NoError(t, mem.Set(ctx, LegacyKey, json.RawMessage(`{
			"url":"https://old.com/hook","method":"POST",
			"params":[{"key":"x","value":"y"}],"quickSend":true
		}`)))

		migrated, err := m.Migrate(ctx)
		require.NoError(t, err)
		assert.True(t, migrated)

		s, err := m.Load(ctx)
		require.NoError(t, err)
		require.Len(t, s.Templates, 1)
		tpl := s.Templates[0]
		assert.Equal(t, "Webhook", tpl.Name)
		assert.Equal(t, "https://old.com/hook", tpl.URL)
		assert.Equal(t, "POST", tpl.Method)
		assert.Equal(t, []params.Param{{Key: "x", Value: "y"}}, tpl.Params)
		require.NotNil(t, s.ActiveTemplateID)
		assert.Equal(t, tpl.ID, *s.ActiveTemplateID)
		assert.True(t, s.QuickSend)
	})

	t.Run("missing_fields_default", func(t *testing.T) {
		m, mem := newTestManager(t)
		require.NoError(t, mem.Set(ctx, LegacyKey, json.RawMessage(`{}`)))

		_, err := m.Migrate(ctx)
		require.NoError(t, err)

		s, _ := m.Load(ctx)
		require.Len(t, s.Templates, 1)
		assert.Equal(t, "", s.Templates[0].URL)
		assert.Equal(t, "POST", s.Templates[0].Method)
		assert.Equal(t, []params.Param{}, s.Templates[0].Params)
		assert.False(t, s.QuickSend)
	})

	t.Run("url_copied_as_is", func(t *testing.T) {
		m, mem := newTestManager(t)
		require.NoError(t, mem.Set(ctx, LegacyKey, json.RawMessage(`{"url":"example.com/hook","method":"GET"}`)))

		migrated, err := m.Migrate(ctx)
		require.NoError(t, err)
		assert.True(t, migrated)

		s, _ := m.Load(ctx)
		require.Len(t, s.Templates, 1)
		assert.Equal(t, "example.com/hook", s.Templates[0].URL)
		assert.Equal(t, "GET", s.Templates[0].Method)
	})

	t.Run("existing_templates_untouched", func(t *testing.T) {
		m, mem := newTestManager(t)
		tpl, _ := m.CreateTemplate(ctx, "Existing")
		require.NoError(t, mem.Set(ctx, LegacyKey, json.RawMessage(`{"url":"https://old.com/hook"}`)))

		migrated, err := m.Migrate(ctx)
		require.NoError(t, err)
		assert.False(t, migrated)

		s, _ := m.Load(ctx)
		require.Len(t, s.Templates, 1)
		assert.Equal(t, tpl.ID, s.Templates[0].ID)
	})

	t.Run("no_legacy", func(t *testing.T) {
		m, mem := newTestManager(t)
		migrated, err := m.Migrate(ctx)
		require.NoError(t, err)
		assert.False(t, migrated)

		_, ok, _ := mem.Get(ctx, StoreKey)
		assert.False(t, ok, "nothing is written")
	})

	// scenario F: running twice on a store that already has a template
	t.Run("idempotent", func(t *testing.T) {
		m, mem := newTestManager(t)
		require.NoError(t, mem.Set(ctx, LegacyKey, json.RawMessage(`{"url":"https://old.com/hook"}`)))

		_, err := m.Migrate(ctx)
		require.NoError(t, err)
		before, _, _ := mem.Get(ctx, StoreKey)

		migrated, err := m.Migrate(ctx)
		require.NoError(t, err)
		assert.False(t, migrated)
		after, _, _ := mem.Get(ctx, StoreKey)
		assert.JSONEq(t, string(before), string(after))
	})
}

func TestLoadSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		m, _ := newTestManager(t)
		snap, err := m.LoadSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, SnapshotAbsent, snap.Kind)
		assert.Nil(t, snap.Current)
		assert.Nil(t, snap.Legacy)
	})

	t.Run("legacy_only", func(t *testing.T) {
		m, mem := newTestManager(t)
		require.NoError(t, mem.Set(ctx, LegacyKey, json.RawMessage(`{"url":"https://old.com","method":"GET"}`)))

		snap, err := m.LoadSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, SnapshotLegacy, snap.Kind)
		require.NotNil(t, snap.Legacy)
		assert.Equal(t, "https://old.com", snap.Legacy.URL)
	})

	t.Run("current_wins_over_legacy", func(t *testing.T) {
		m, mem := newTestManager(t)
		require.NoError(t, mem.Set(ctx, LegacyKey, json.RawMessage(`{"url":"https://old.com"}`)))
		require.NoError(t, mem.Set(ctx, StoreKey, json.RawMessage(`{"templates":[]}`)))

		snap, err := m.LoadSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, SnapshotCurrent, snap.Kind)
		require.NotNil(t, snap.Current)
		assert.Empty(t, snap.Current.Templates)
		assert.NotNil(t, snap.Current.QuickSendRules)
	})

	t.Run("decode_error", func(t *testing.T) {
		m, mem := newTestManager(t)
		require.NoError(t, mem.Set(ctx, StoreKey, json.RawMessage(`{"templates":"nope"}`)))
		_, err := m.LoadSnapshot(ctx)
		assert.Error(t, err)
	})
}

func TestLoadSnapshotKindString(t *testing.T) {
	assert.Equal(t, "absent", SnapshotAbsent.String())
	assert.Equal(t, "legacy", SnapshotLegacy.String())
	assert.Equal(t, "current", SnapshotCurrent.String())
}
