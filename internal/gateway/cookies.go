package gateway

import "net/http"

// jarTransport keeps the upstream session cookies in the gateway: cookies
// from Jar are attached to every upstream request and cookies set by the
// upstream are recorded back into it.
type jarTransport struct {
	Base http.RoundTripper
	Jar  http.CookieJar
}

// Compile-time check to ensure jarTransport implements http.RoundTripper
var _ http.RoundTripper = (*jarTransport)(nil)

func (t *jarTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	newReq := req.Clone(req.Context())
	for _, c := range t.Jar.Cookies(newReq.URL) {
		newReq.AddCookie(c)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(newReq)
	if err != nil {
		return resp, err
	}

	if cookies := resp.Cookies(); len(cookies) > 0 {
		t.Jar.SetCookies(newReq.URL, cookies)
	}
	return resp, nil
}
