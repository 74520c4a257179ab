package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/store"
)

func TestFetchNamesEncodesQuery(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/names", r.URL.Path)
		q := r.URL.Query()
		got = map[string]string{
			"runs":   q.Get("runs"),
			"kind":   q.Get("kind"),
			"search": q.Get("search"),
			"regex":  q.Get("regex"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"train/loss"},{"name":"eval/loss"}]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)

	ns, err := c.FetchNames(context.Background(), names.Query{
		RunIDs: []string{"R1", "R2"},
		Kind:   names.KindMetric,
		Search: " loss ",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"runs": "R1,R2", "kind": "metric", "search": "loss", "regex": ""}, got)
	assert.Equal(t, []names.Name{
		{Name: "train/loss", Kind: names.KindMetric},
		{Name: "eval/loss", Kind: names.KindMetric},
	}, ns)
}

func TestFetchNamesWithoutRunsSkipsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	ns, err := c.FetchNames(context.Background(), names.Query{Kind: names.KindMetric})
	assert.NoError(t, err)
	assert.Empty(t, ns)
}

func TestFetchNamesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad regex", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	_, err = c.FetchNames(context.Background(), names.Query{RunIDs: []string{"R1"}, Regex: "("})
	assert.ErrorContains(t, err, "status 400")
}

func TestIndexPostsRecords(t *testing.T) {
	var recs []store.Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&recs))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	err = c.Index(context.Background(), []store.Record{{RunID: "R1", Kind: names.KindMetric, Name: "train/loss"}})
	require.NoError(t, err)
	assert.Equal(t, []store.Record{{RunID: "R1", Kind: names.KindMetric, Name: "train/loss"}}, recs)
}

func TestParseBaseURL(t *testing.T) {
	u, err := parseBaseURL("127.0.0.1:7480/ignored?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:7480", u.String())

	_, err = parseBaseURL("  ")
	assert.Error(t, err)
}
