package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deadlockdevs/warden/automod/engine"
	"github.com/deadlockdevs/warden/automod/mutes"
	"github.com/deadlockdevs/warden/automod/mutestore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdmin(password string) (http.Handler, *engine.Engine, *mutes.Ledger, *int) {
	eng, platform := engine.EngineTestFixture()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := mutes.NewLedger(mutestore.NewMemMuteStore(), platform, logger)
	reloads := 0
	api := &adminAPI{
		engine: eng,
		mutes:  ledger,
		reload: func() *engine.Settings {
			reloads++
			return eng.Settings()
		},
		registerer: prometheus.NewRegistry(),
	}
	return api.echo(logger, password), eng, ledger, &reloads
}

func doRequest(h http.Handler, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminHealth(t *testing.T) {
	assert := assert.New(t)
	h, _, _, _ := testAdmin("secret")

	rec := doRequest(h, http.MethodGet, "/_health", "")
	assert.Equal(http.StatusOK, rec.Code)
	var status GenericStatus
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("warden", status.Daemon)
	assert.Equal("ok", status.Status)
}

func TestAdminAuth(t *testing.T) {
	assert := assert.New(t)
	h, _, _, _ := testAdmin("secret")

	assert.NotEqual(http.StatusOK, doRequest(h, http.MethodGet, "/admin/settings", "").Code)
	assert.Equal(http.StatusUnauthorized, doRequest(h, http.MethodGet, "/admin/settings", "wrong").Code)
	assert.Equal(http.StatusOK, doRequest(h, http.MethodGet, "/admin/settings", "secret").Code)
}

func TestAdminSettings(t *testing.T) {
	assert := assert.New(t)
	h, eng, _, reloads := testAdmin("")

	rec := doRequest(h, http.MethodGet, "/admin/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s engine.Settings
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(eng.Settings().Enabled, s.Enabled)
	assert.Equal(1, len(s.Rules))
	assert.Equal("keyword", s.Rules[0].Name)

	rec = doRequest(h, http.MethodPost, "/admin/settings/reload", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal(1, *reloads)
}

func TestAdminWarnsAndMutes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	h, eng, ledger, _ := testAdmin("")

	target := engine.Target{GuildID: "g1", UserID: "u1"}
	eng.Warn(ctx, target, engine.Actor{ID: "mod1"}, "rude")
	_, err := ledger.AddMute(ctx, "g1", "u1", 10*time.Minute, "spam", "mod1")
	require.NoError(t, err)
	_, err = ledger.AddMute(ctx, "g2", "u2", 5*time.Minute, "spam", "mod1")
	require.NoError(t, err)

	rec := doRequest(h, http.MethodGet, "/admin/warns/g1/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var warns WarnListResponse
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &warns))
	assert.Equal(1, warns.Count)
	assert.Equal("rude", warns.Warns[0].Reason)
	assert.Equal("mod1", warns.Warns[0].ActorID)

	rec = doRequest(h, http.MethodGet, "/admin/warns/g1/nobody", "")
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &warns))
	assert.Equal(0, warns.Count)
	assert.NotNil(warns.Warns)

	var list MuteListResponse
	rec = doRequest(h, http.MethodGet, "/admin/mutes", "")
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(2, len(list.Mutes))
	// soonest expiry first
	assert.Equal("u2", list.Mutes[0].UserID)

	rec = doRequest(h, http.MethodGet, "/admin/mutes?guild=g1", "")
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(1, len(list.Mutes))
	assert.Equal("u1", list.Mutes[0].UserID)
}
