package streamchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpair-be/internal/provider"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "key", APISecret: "secret", BaseURL: srv.URL, Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateChannel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/channels/messaging/ch-1/query", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "jwt", r.Header.Get("Stream-Auth-Type"))
		assert.NotEmpty(t, r.Header.Get("Authorization"))

		var body struct {
			Data struct {
				Name        string   `json:"name"`
				Members     []string `json:"members"`
				CreatedByID string   `json:"created_by_id"`
			} `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Team", body.Data.Name)
		assert.Equal(t, []string{"1", "2"}, body.Data.Members)
		assert.Equal(t, "1", body.Data.CreatedByID)

		writeJSON(w, http.StatusCreated, map[string]any{
			"channel": map[string]any{"id": "ch-1", "name": "Team", "created_by": map[string]any{"id": "1"}},
			"members": []map[string]any{{"user_id": "1"}, {"user_id": "2"}},
		})
	})

	h, err := c.CreateChannel(context.Background(), provider.ChannelSpec{ID: "ch-1", Name: "Team", Members: []uint{1, 2}, CreatedBy: 1})
	require.NoError(t, err)
	assert.Equal(t, "ch-1", h.ID)
	assert.Equal(t, "Team", h.Name)
	assert.Equal(t, uint(1), h.CreatedBy)
	assert.Equal(t, []uint{1, 2}, h.Members)
}

func TestMembershipMutations(t *testing.T) {
	var got map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/messaging/ch-1", r.URL.Path)
		got = map[string]json.RawMessage{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{})
	})

	require.NoError(t, c.AddMembers(context.Background(), "ch-1", []uint{3}))
	assert.JSONEq(t, `[{"user_id":"3"}]`, string(got["add_members"]))

	require.NoError(t, c.RemoveMembers(context.Background(), "ch-1", []uint{3, 4}))
	assert.JSONEq(t, `["3","4"]`, string(got["remove_members"]))
}

func TestGetChannel(t *testing.T) {
	testCases := []struct {
		name    string
		payload map[string]any
		wantErr error
		members []uint
	}{
		{
			name: "found",
			payload: map[string]any{"channels": []map[string]any{{
				"channel": map[string]any{"id": "ch-1", "name": "Team"},
				"members": []map[string]any{{"user_id": "5"}, {"user_id": "9"}},
			}}},
			members: []uint{5, 9},
		},
		{
			name:    "missing",
			payload: map[string]any{"channels": []map[string]any{}},
			wantErr: provider.ErrChannelNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/channels", r.URL.Path)
				writeJSON(w, http.StatusCreated, tc.payload)
			})

			h, err := c.GetChannel(context.Background(), "ch-1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.members, h.Members)
		})
	}
}

func TestAPIErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/channels/messaging/gone" {
			writeJSON(w, http.StatusNotFound, map[string]any{"code": 16, "message": "channel does not exist", "StatusCode": 404})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"code": -1, "message": "boom", "StatusCode": 500})
	})

	err := c.AddMembers(context.Background(), "gone", []uint{1})
	assert.ErrorIs(t, err, provider.ErrChannelNotFound)

	err = c.UpsertUser(context.Background(), provider.User{ID: 1, Name: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		writeJSON(w, http.StatusCreated, map[string]any{})
	})

	err := c.AddMembers(context.Background(), "ch-1", []uint{1})
	assert.Error(t, err)
}

func TestIssueAccessToken(t *testing.T) {
	c, err := New(Config{APIKey: "key", APISecret: "secret", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)

	tokenStr, err := c.IssueAccessToken(context.Background(), 42)
	require.NoError(t, err)

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "42", claims["user_id"])
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{BaseURL: "http://example.com"})
	assert.Error(t, err)
}
