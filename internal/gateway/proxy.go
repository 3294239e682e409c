package gateway

import (
	"context"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// ServiceProxy forwards gateway requests to one downstream service.
type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Request headers a downstream service may rely on.
var forwardedRequestHeaders = []string{"Content-Type", "Accept"}

// ForwardRequest replays r against path on the downstream service. The
// query string and body go through unchanged, and the chi request id is sent
// as X-Request-Id so logs on both sides line up.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, name := range forwardedRequestHeaders {
		if value := r.Header.Get(name); value != "" {
			req.Header.Set(name, value)
		}
	}
	if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(chimiddleware.RequestIDHeader, reqID)
	}

	return p.client.Do(req)
}
