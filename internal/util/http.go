package util

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP from the request. Only RemoteAddr is
// trusted; forwarding headers are not consulted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HeaderEqualFold reports whether two header names are equal under
// case-insensitive comparison.
func HeaderEqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
