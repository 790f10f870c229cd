package airtable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alohacamp/leadcheck/internal/model"
)

func TestSearchProperties_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/base123/Properties v2", r.URL.Path)
		assert.Equal(t, "SEARCH(LOWER('Seaside Villa'), LOWER({Property Name}))", r.URL.Query().Get("filterByFormula"))
		assert.Equal(t, "20", r.URL.Query().Get("maxRecords"))

		w.Write([]byte(`{"records":[
			{"id":"recA","fields":{"Property Name":"Seaside Villas"}},
			{"id":"recB","fields":{"Name":"Villa Seaside"}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient("at-token", "base123", WithBaseURL(srv.URL))
	got, err := client.SearchProperties(context.Background(), "Seaside Villa")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.CategoryDirectory, got[0].Category)
	assert.Equal(t, "Seaside Villas", got[0].PropertyName)
	// Fallback column name.
	assert.Equal(t, "Villa Seaside", got[1].PropertyName)
}

func TestSearchProperties_MixedFieldTypes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records":[
			{"id":"recA","fields":{"Property Name":"Seaside Villas","Rating":5,"Active":true,"Photos":[{"url":"https://x/1.jpg"}]}},
			{"id":"recB","fields":{"Property Name":42,"Name":"Villa Seaside"}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient("at-token", "base123", WithBaseURL(srv.URL))
	got, err := client.SearchProperties(context.Background(), "Seaside Villa")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Seaside Villas", got[0].PropertyName)
	// Non-string values in a name column are ignored, not errors.
	assert.Equal(t, "Villa Seaside", got[1].PropertyName)
}

func TestSearchProperties_EscapesQuotes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `SEARCH(LOWER('O\'Brien\'s Camp'), LOWER({Property Name}))`, r.URL.Query().Get("filterByFormula"))
		w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	client := NewClient("at-token", "base123", WithBaseURL(srv.URL))
	got, err := client.SearchProperties(context.Background(), "O'Brien's Camp")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchProperties_EmptyName(t *testing.T) {
	t.Parallel()

	client := NewClient("at-token", "base123", WithBaseURL("http://127.0.0.1:1"))
	got, err := client.SearchProperties(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchProperties_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"NOT_AUTHORIZED"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-token", "base123", WithBaseURL(srv.URL))
	_, err := client.SearchProperties(context.Background(), "Seaside Villa")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSearchProperties_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	client := NewClient("at-token", "base123", WithBaseURL(srv.URL))
	_, err := client.SearchProperties(context.Background(), "Seaside Villa")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
