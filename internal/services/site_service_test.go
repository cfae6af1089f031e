package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/folio/internal/database/testutil"
)

func TestSiteServiceFallsBackToDefaults(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSiteService(db)
	require.NoError(t, err)

	theme, err := svc.Theme(context.Background())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(theme.Value, &decoded))
	require.Equal(t, "#0a0a0a", decoded["background_color"])
}

func TestSiteServiceReadsSeededDocuments(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, err := NewSiteService(db)
	require.NoError(t, err)

	content, err := svc.Content(context.Background())
	require.NoError(t, err)
	require.Equal(t, "content", content.Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(content.Value, &decoded))
	require.Contains(t, decoded, "projects")
}

func TestSiteServiceUpdate(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSiteService(db)
	require.NoError(t, err)
	ctx := context.Background()

	updated, err := svc.UpdateContent(ctx, json.RawMessage(`{"hero_title":"Selected work","projects":[]}`), "admin-1")
	require.NoError(t, err)
	require.Equal(t, "admin-1", *updated.UpdatedBy)

	_, err = svc.UpdateContent(ctx, json.RawMessage(`{"hero_title":"Recent work"}`), "admin-1")
	require.NoError(t, err)

	content, err := svc.Content(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"hero_title":"Recent work"}`, string(content.Value))

	_, err = svc.UpdateTheme(ctx, json.RawMessage(`["not","an","object"]`), "admin-1")
	require.ErrorIs(t, err, ErrInvalidSettingValue)
}
