package webhook

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyTransport sends requests with a resty client. Timeouts live here, not
// in the dispatcher.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a transport; timeout <= 0 means no client timeout.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &RestyTransport{client: client}
}

// Do implements Transport.
func (t *RestyTransport) Do(ctx context.Context, req Request) (Response, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers)
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return Response{}, err
	}
	return Response{OK: resp.IsSuccess(), Status: resp.StatusCode()}, nil
}
