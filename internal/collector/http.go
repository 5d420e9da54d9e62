package collector

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"WeeklyStockPrice/internal/apperr"
)

// httpSource bundles the resty client and outbound limiter shared by the
// HTTP fetchers.
type httpSource struct {
	name    string
	client  *resty.Client
	limiter *rate.Limiter
}

func newHTTPSource(name string, opts HTTPOptions) httpSource {
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": opts.UserAgent,
		})
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst)
	}
	return httpSource{name: name, client: client, limiter: limiter}
}

// request waits for a limiter slot and returns a request bound to ctx.
func (h httpSource) request(ctx context.Context) (*resty.Request, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, apperr.Provider(h.name, err)
		}
	}
	return h.client.R().SetContext(ctx), nil
}

// classify maps a transport error or non-2xx status to the error taxonomy.
func (h httpSource) classify(symbol string, resp *resty.Response, err error) error {
	if err != nil {
		return apperr.Provider(h.name, err)
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return apperr.NotFound(symbol)
	case code < 200 || code >= 300:
		return apperr.Provider(h.name, &statusError{code: code, body: truncate(resp.String(), 200)})
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return http.StatusText(e.code) + ": " + e.body
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
