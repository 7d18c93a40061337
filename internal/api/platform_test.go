package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCookieEndpoints(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		switch r.URL.Path {
		case "/cookies/douyin/validate":
			_, _ = io.WriteString(w, toolBody(`{"valid": false, "error": "cookies expired"}`))
		case "/cookies/douyin/load":
			_, _ = io.WriteString(w, `{"success": true, "cookies": [{"name": "sid", "value": "x"}]}`)
		case "/cookies/douyin/get":
			_, _ = io.WriteString(w, toolBody(`{"success": true, "cookies": "[{\"name\":\"sid\"}]", "saved": true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	v, err := c.ValidateCookies(ctx, "douyin")
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, "cookies expired", v.Failure())

	l, err := c.LoadCookies(ctx, "douyin")
	require.NoError(t, err)
	require.True(t, l.Success)
	require.JSONEq(t, `[{"name":"sid","value":"x"}]`, l.CookiesText())

	g, err := c.GetCookies(ctx, "douyin")
	require.NoError(t, err)
	require.True(t, g.Success)
	require.True(t, g.Saved)
	require.Equal(t, `[{"name":"sid"}]`, g.CookiesText())

	require.Equal(t, []string{"/cookies/douyin/validate", "/cookies/douyin/load", "/cookies/douyin/get"}, paths)
}

func TestDecodeCookieResultRejectsNonJSONText(t *testing.T) {
	_, err := DecodeCookieResult([]byte(toolBody("login window closed")))
	require.Error(t, err)
}

func TestPublish(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tools/xiaohongshu", r.URL.Path)
		var req PublishRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "[1]", req.Cookies)
		require.Equal(t, []string{"aW1n"}, req.Images)
		require.Equal(t, []string{}, req.Tags)
		_, _ = io.WriteString(w, toolBody("Successfully published to Xiaohongshu"))
	})
	res, err := c.Publish(context.Background(), "xiaohongshu", PublishRequest{
		Cookies: "[1]",
		Title:   "t",
		Images:  []string{"aW1n"},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "Successfully published to Xiaohongshu", res.Message)
}

func TestPublishApplicationFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, toolBody(`{"success": false, "error": "captcha required"}`))
	})
	res, err := c.Publish(context.Background(), "douyin", PublishRequest{Title: "t"})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "captcha required", res.Error)
}
