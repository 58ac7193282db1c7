package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// scrapeError is an error with the classification the metrics and the
// tracker report on. The kind is one of the errKind* constants.
type scrapeError struct {
	kind errorKind
	msg  string
}

func (e *scrapeError) Error() string {
	return e.msg
}

func newScrapeError(kind errorKind, format string, args ...interface{}) *scrapeError {
	return &scrapeError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// classifyTransportError maps a failed HTTP round trip onto the error
// taxonomy. Timeouts are checked first since a timed-out dial also
// surfaces as a *net.OpError.
func classifyTransportError(address string, err error) *scrapeError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newScrapeError(errKindTimeout, "[%s] connection timed out: %v", address, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return newScrapeError(errKindConnection, "[%s] cannot connect to commander: %v", address, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return newScrapeError(errKindConnection, "[%s] cannot connect to commander: %v", address, err)
	}

	return newScrapeError(errKindUnknown, "[%s] unexpected error: %v", address, err)
}
