package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/resolver"
	"github.com/hayeah/runlens/section"
	"github.com/hayeah/runlens/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db, "demo", nil)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Index(context.Background(), []store.Record{
		{RunID: "R1", Kind: names.KindMetric, Name: "train/loss"},
		{RunID: "R1", Kind: names.KindMetric, Name: "train/acc"},
		{RunID: "R2", Kind: names.KindMetric, Name: "eval/loss"},
		{RunID: "R1", Kind: names.KindFile, Name: "media/samples", LogType: names.LogTypeImage},
	}))

	sections := section.NewStore(afero.NewMemMapFs(), "/sections.jsonc")
	return New(st, resolver.New(st, nil), sections, 0, nil)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetNames(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/names?runs=R1,R2&kind=metric&regex=loss$", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"eval/loss", "train/loss"}, names.Strings(decode[[]names.Name](t, rec)))

	rec = do(t, s, http.MethodGet, "/api/names?runs=R1&kind=file", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []names.Name{{Name: "media/samples", Kind: names.KindFile, LogType: names.LogTypeImage}},
		decode[[]names.Name](t, rec))

	rec = do(t, s, http.MethodGet, "/api/names?kind=metric", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetNamesRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{
		"/api/names?runs=R1&regex=(a%2B)%2B",
		"/api/names?runs=R1&regex=train/(",
		"/api/names?runs=R1&kind=table",
	} {
		rec := do(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestPostNames(t *testing.T) {
	s := newTestServer(t)
	indexed := 0
	s.OnIndexed = func() { indexed++ }

	rec := do(t, s, http.MethodPost, "/api/names", `[{"runId":"R3","kind":"metric","name":"lr"}]`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, 1, indexed)

	rec = do(t, s, http.MethodGet, "/api/names?runs=R3", "")
	assert.Equal(t, []string{"lr"}, names.Strings(decode[[]names.Name](t, rec)))

	rec = do(t, s, http.MethodPost, "/api/names", `[{"runId":"R3","kind":"table","name":"x"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolve(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/resolve?pattern=train/*&runs=R1,R2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[resolver.Result](t, rec)
	assert.Equal(t, []string{"train/acc", "train/loss"}, names.Strings(res.Matches))

	rec = do(t, s, http.MethodGet, "/api/resolve?pattern=.*.*.*&mode=regex&runs=R1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matches":[],"invalid":true}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/resolve?pattern=loss&runs=", "")
	assert.JSONEq(t, `{"matches":[],"invalid":false}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/resolve?pattern=loss&mode=glob&runs=R1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSectionsLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/sections", `{"id":"loss","pattern":"loss$","mode":"regex"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/sections", `{"id":"loss","pattern":"x"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/sections", `{"pattern":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/sections", "")
	assert.Equal(t, []section.Section{{ID: "loss", Pattern: "loss$", Mode: resolver.ModeRegex}},
		decode[[]section.Section](t, rec))

	rec = do(t, s, http.MethodGet, "/api/sections/loss/widgets?runs=R1,R2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	w := decode[section.Widgets](t, rec)
	assert.Equal(t, []string{"eval/loss", "train/loss"}, w.Names())
	assert.Equal(t, "dynamic-loss-metric-eval/loss", w.Widgets[0].ID)

	rec = do(t, s, http.MethodGet, "/api/sections/loss/widgets?runs=R1,R2&limit=1", "")
	w = decode[section.Widgets](t, rec)
	assert.Len(t, w.Widgets, 1)
	assert.True(t, w.Truncated)

	rec = do(t, s, http.MethodPut, "/api/sections/loss", `{"pattern":"train/*","mode":"search"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, s, http.MethodGet, "/api/sections/loss/widgets?runs=R1", "")
	assert.Equal(t, []string{"train/acc", "train/loss"}, decode[section.Widgets](t, rec).Names())

	rec = do(t, s, http.MethodDelete, "/api/sections/loss", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/sections/loss", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/sections/loss/widgets?runs=R1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseRuns(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseRuns(" a, ,b,"))
	assert.Nil(t, parseRuns(""))
}
