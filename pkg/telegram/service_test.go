package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_SendMessageUsesHTML(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	svc := NewService("TOKEN", WithBaseURL(srv.URL))
	require.NoError(t, svc.SendMessage(context.Background(), 555, "<b>hi</b>"))

	assert.Equal(t, float64(555), got["chat_id"])
	assert.Equal(t, "<b>hi</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestService_APIErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	err := NewService("TOKEN", WithBaseURL(srv.URL)).SendMessage(context.Background(), 1, "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
}

func TestService_EmptyTokenFailsWithoutRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	err := NewService("", WithBaseURL(srv.URL)).SendMessage(context.Background(), 1, "x")
	assert.Error(t, err)
	assert.False(t, called)
}

func TestService_GetUpdates(t *testing.T) {
	var req getUpdatesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":77},"text":"/start abc"}},
			{"update_id":11}
		]}`))
	}))
	defer srv.Close()

	updates, err := NewService("TOKEN", WithBaseURL(srv.URL)).GetUpdates(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, int64(10), req.Offset)
	assert.Equal(t, []string{"message"}, req.AllowedUpdates)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(10), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, int64(77), updates[0].Message.Chat.ID)
	assert.Equal(t, "/start abc", updates[0].Message.Text)
	assert.Nil(t, updates[1].Message)
}

func TestParseStartCommand(t *testing.T) {
	cases := []struct {
		text    string
		payload string
		ok      bool
	}{
		{"/start", "", true},
		{"/start abc", "abc", true},
		{"  /start   abc  ", "abc", true},
		{"/start@TasklyBot abc", "abc", true},
		{"/start@TasklyBot", "", true},
		{"/starting", "", false},
		{"hello", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			payload, ok := ParseStartCommand(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.payload, payload)
		})
	}
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", EscapeHTML("a <b> & c"))
}
