package main

import (
	"crypto/tls"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"time"
)

const (
	transportMaxRetries   = 3
	transportRetryBackoff = 1 * time.Second
)

// newCommanderHTTPClient builds the one pooled HTTP client shared by
// every commander query across all workers. It is created once at
// process start and torn down through closeIdleConnections at exit.
//
// DEPLOYMENT RISK: TLS certificate validation is disabled on purpose.
// Commanders ship with self-signed certificates and operators do not
// maintain a CA for them, so anyone able to answer on a commander's
// address can capture the shared credentials. Only run this against a
// trusted management network.
func newCommanderHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &retryingTransport{
			next:       transport,
			maxRetries: transportMaxRetries,
			backoff:    transportRetryBackoff,
		},
	}
}

// retryingTransport retries commander queries that come back with a
// gateway-type 5xx status. All commander requests are GETs, so a replay
// is safe. Callers only ever see the final response; the retry budget is
// not target-visible.
type retryingTransport struct {
	next       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		resp, err = t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}

		if !isRetryableStatus(resp.StatusCode) || attempt >= t.maxRetries {
			return resp, nil
		}

		// Drain so the pooled connection can be reused.
		io.Copy(ioutil.Discard, resp.Body)
		resp.Body.Close()

		time.Sleep(t.backoff << uint(attempt))
	}
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
