package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/models"
)

func decodeNote(t *testing.T, body []byte) models.Note {
	t.Helper()
	var n models.Note
	require.NoError(t, json.Unmarshal(body, &n))
	return n
}

func decodeNotes(t *testing.T, body []byte) []models.Note {
	t.Helper()
	var ns []models.Note
	require.NoError(t, json.Unmarshal(body, &ns))
	return ns
}

func TestNotesRequireAuth(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/notes", nil},
		{http.MethodPost, "/notes", map[string]string{"title": "x"}},
		{http.MethodPut, "/notes/abc", map[string]string{"title": "x"}},
		{http.MethodDelete, "/notes/abc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := doJSON(t, h, tt.method, tt.path, "", tt.body)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			rr = doJSON(t, h, tt.method, tt.path, "invalid-token", tt.body)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestCreateNote(t *testing.T) {
	h := newTestRouter(t)
	token := signupAndLogin(t, h, "a@x.com", "pw1")

	t.Run("defaults", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/notes", token, map[string]string{"title": "Buy milk"})
		require.Equal(t, http.StatusCreated, rr.Code)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
		assert.Equal(t, "Buy milk", raw["title"])
		assert.Equal(t, "", raw["content"])
		assert.Equal(t, "Other", raw["category"])
		assert.Equal(t, false, raw["isPinned"])
		assert.NotEmpty(t, raw["id"])
		assert.NotEmpty(t, raw["ownerId"])
		assert.NotEmpty(t, raw["createdAt"])
	})

	t.Run("missing title", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/notes", token, map[string]string{"content": "no title"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		// Well-formed JSON; only its size is wrong.
		big := `{"title":"` + strings.Repeat("a", 2<<20) + `"}`
		require.True(t, json.Valid([]byte(big)))

		rr := doJSON(t, h, http.MethodPost, "/notes", token, big)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "too large")
	})

	t.Run("body just under the limit", func(t *testing.T) {
		body := `{"title":"` + strings.Repeat("a", 1<<19) + `"}`
		rr := doJSON(t, h, http.MethodPost, "/notes", token, body)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})
}

func TestNotesLifecycle(t *testing.T) {
	h := newTestRouter(t)
	token := signupAndLogin(t, h, "a@x.com", "pw1")

	rr := doJSON(t, h, http.MethodPost, "/notes", token, map[string]any{"title": "N1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	n1 := decodeNote(t, rr.Body.Bytes())

	rr = doJSON(t, h, http.MethodPost, "/notes", token, map[string]any{"title": "N2", "isPinned": true, "category": "Work"})
	require.Equal(t, http.StatusCreated, rr.Code)
	n2 := decodeNote(t, rr.Body.Bytes())

	t.Run("pinned first", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/notes", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		list := decodeNotes(t, rr.Body.Bytes())
		require.Len(t, list, 2)
		assert.Equal(t, n2.ID, list[0].ID)
		assert.Equal(t, n1.ID, list[1].ID)
	})

	t.Run("category filter", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/notes?category=Work", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		list := decodeNotes(t, rr.Body.Bytes())
		require.Len(t, list, 1)
		assert.Equal(t, n2.ID, list[0].ID)
	})

	t.Run("search", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/notes?q=n1", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		list := decodeNotes(t, rr.Body.Bytes())
		require.Len(t, list, 1)
		assert.Equal(t, n1.ID, list[0].ID)
	})

	t.Run("put applies only present fields", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPut, "/notes/"+n1.ID, token, map[string]any{"content": "details"})
		require.Equal(t, http.StatusOK, rr.Code)
		got := decodeNote(t, rr.Body.Bytes())
		assert.Equal(t, "N1", got.Title)
		assert.Equal(t, "details", got.Content)
		assert.False(t, got.IsPinned)
	})

	t.Run("patch pins", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPatch, "/notes/"+n1.ID, token, map[string]any{"isPinned": true})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decodeNote(t, rr.Body.Bytes()).IsPinned)
	})

	t.Run("update unknown note", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPut, "/notes/missing", token, map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodDelete, "/notes/"+n1.ID, token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"deleted":true}`, rr.Body.String())

		rr = doJSON(t, h, http.MethodDelete, "/notes/"+n1.ID, token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = doJSON(t, h, http.MethodGet, "/notes", token, nil)
		list := decodeNotes(t, rr.Body.Bytes())
		require.Len(t, list, 1)
		assert.Equal(t, n2.ID, list[0].ID)
	})
}

func TestNotesAreScopedToOwner(t *testing.T) {
	h := newTestRouter(t)
	alice := signupAndLogin(t, h, "alice@x.com", "pw")
	bob := signupAndLogin(t, h, "bob@x.com", "pw")

	rr := doJSON(t, h, http.MethodPost, "/notes", alice, map[string]any{"title": "alice only"})
	require.Equal(t, http.StatusCreated, rr.Code)
	note := decodeNote(t, rr.Body.Bytes())

	rr = doJSON(t, h, http.MethodGet, "/notes", bob, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeNotes(t, rr.Body.Bytes()))

	rr = doJSON(t, h, http.MethodPut, "/notes/"+note.ID, bob, map[string]any{"title": "stolen"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, h, http.MethodDelete, "/notes/"+note.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/notes", alice, nil)
	list := decodeNotes(t, rr.Body.Bytes())
	require.Len(t, list, 1)
	assert.Equal(t, "alice only", list[0].Title)
}
