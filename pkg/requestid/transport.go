package requestid

import "net/http"

// Transport sets X-Request-ID on outgoing requests: the id in the request
// context when present, a new one otherwise.
type Transport struct {
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get(Header) != "" {
		return base.RoundTrip(req)
	}

	id := FromContext(req.Context())
	if id == "" {
		id = New()
	}
	req = req.Clone(req.Context())
	req.Header.Set(Header, id)
	return base.RoundTrip(req)
}
