package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		trust   bool
		want    string
	}{
		{"remote host", "10.0.0.9:5555", nil, false, "10.0.0.9"},
		{"xff ignored when untrusted", "10.0.0.9:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, false, "10.0.0.9"},
		{"xff first hop", "10.0.0.9:5555", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8"}, true, "1.2.3.4"},
		{"real ip", "10.0.0.9:5555", map[string]string{"X-Real-IP": "9.9.9.9"}, true, "9.9.9.9"},
		{"remote without port", "10.0.0.9", nil, false, "10.0.0.9"},
		{"unknown", "", nil, true, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "http://example/api/reviews", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r, tt.trust))
		})
	}
}
