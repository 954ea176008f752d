// Package csrf discovers the anti-forgery token the reconciliation API
// expects on state-changing requests.
//
// Sources are tried in order: a hidden form field named
// "csrfmiddlewaretoken", a <meta name="csrf-token"> tag, then a cookie.
package csrf

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const (
	FormField  = "csrfmiddlewaretoken"
	MetaName   = "csrf-token"
	HeaderName = "X-CSRFToken"

	DefaultCookie = "csrftoken"
)

// FromHTML returns the token embedded in a page, preferring the form field
// over the meta tag. It reports false when neither is present.
func FromHTML(r io.Reader) (string, bool) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", false
	}

	var formToken, metaToken string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input":
				if formToken == "" && attr(n, "name") == FormField {
					formToken = attr(n, "value")
				}
			case "meta":
				if metaToken == "" && attr(n, "name") == MetaName {
					metaToken = attr(n, "content")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if formToken != "" {
		return formToken, true
	}
	if metaToken != "" {
		return metaToken, true
	}
	return "", false
}

// FromCookies returns the value of the named cookie the jar holds for u.
func FromCookies(jar http.CookieJar, u *url.URL, name string) (string, bool) {
	if jar == nil || u == nil {
		return "", false
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name && c.Value != "" {
			v, err := url.QueryUnescape(c.Value)
			if err != nil {
				return c.Value, true
			}
			return v, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
