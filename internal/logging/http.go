package logging

import (
	"net/http"

	"github.com/motemen/go-loghttp"
)

// HTTPTransport wraps base so that every request and response is recorded at
// debug level. A nil base means http.DefaultTransport. When the logger is not
// in debug mode base is returned unchanged.
func (al *AppLogger) HTTPTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if !al.debug {
		return base
	}
	return &loghttp.Transport{
		Transport: base,
		LogRequest: func(req *http.Request) {
			al.Debug("HTTP request", "method", req.Method, "url", req.URL.String())
		},
		LogResponse: func(resp *http.Response) {
			al.Debug("HTTP response", "status", resp.StatusCode, "url", resp.Request.URL.String())
		},
	}
}
