package csrf

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTML(t *testing.T) {
	t.Run("prefers form field over meta tag", func(t *testing.T) {
		page := `<html><head><meta name="csrf-token" content="meta-tok"></head>
<body><form><input type="hidden" name="csrfmiddlewaretoken" value="form-tok"></form></body></html>`

		tok, ok := FromHTML(strings.NewReader(page))
		require.True(t, ok)
		assert.Equal(t, "form-tok", tok)
	})

	t.Run("falls back to meta tag", func(t *testing.T) {
		page := `<html><head><meta name="csrf-token" content=" meta-tok "></head><body></body></html>`

		tok, ok := FromHTML(strings.NewReader(page))
		require.True(t, ok)
		assert.Equal(t, "meta-tok", tok)
	})

	t.Run("reports missing token", func(t *testing.T) {
		_, ok := FromHTML(strings.NewReader(`<html><body><p>nothing</p></body></html>`))
		assert.False(t, ok)
	})
}

func TestFromCookies(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	u, _ := url.Parse("http://recon.test/")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "sessionid", Value: "abc"},
		{Name: "csrftoken", Value: "tok%2Fwith%2Fslash"},
	})

	tok, ok := FromCookies(jar, u, DefaultCookie)
	require.True(t, ok)
	assert.Equal(t, "tok/with/slash", tok)

	_, ok = FromCookies(jar, u, "missing")
	assert.False(t, ok)

	_, ok = FromCookies(nil, u, DefaultCookie)
	assert.False(t, ok)
}
