package main

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	log "github.com/Financial-Times/go-logger"
)

// commanderClient talks to a single commander's CGILink endpoint. The
// per-client state is just the target's coordinates; the HTTP client,
// token cache and circuit breaker are shared across all clients and all
// workers.
type commanderClient struct {
	address    string
	username   string
	password   string
	httpClient *http.Client
	tokens     *tokenCache
	breaker    *authCircuitBreaker
}

func newCommanderClient(address string, creds credentials, httpClient *http.Client, tokens *tokenCache, breaker *authCircuitBreaker) *commanderClient {
	return &commanderClient{
		address:    address,
		username:   creds.username,
		password:   creds.password,
		httpClient: httpClient,
		tokens:     tokens,
		breaker:    breaker,
	}
}

func (c *commanderClient) cacheKey() string {
	return c.address + ":" + c.username
}

// getToken returns a usable session token, authenticating against the
// commander only when the cache has none. After maxAuthFailures
// consecutive failed attempts within the current cycle the circuit
// breaker suppresses further attempts without a network call.
func (c *commanderClient) getToken() (string, *scrapeError) {
	if token, ok := c.tokens.get(c.cacheKey()); ok {
		return token, nil
	}

	if c.breaker.isOpen(c.address) {
		log.Warnf("[%s] Skipping authentication: %d failed attempts reached.", c.address, maxAuthFailures)
		return "", newScrapeError(errKindAuthDenied, "[%s] authentication suppressed after %d failed attempts", c.address, maxAuthFailures)
	}

	log.Debugf("[%s] Attempting to authenticate", c.address)
	body, serr := c.doQuery("validate", url.Values{"user": {c.username}, "passwd": {c.password}})
	if serr != nil {
		c.breaker.recordFailure(c.address)
		return "", serr
	}

	token, err := extractCookie(body)
	if err != nil {
		c.breaker.recordFailure(c.address)
		return "", newScrapeError(errKindParse, "[%s] cannot parse validate response: %v", c.address, err)
	}
	if token == "" {
		c.breaker.recordFailure(c.address)
		return "", newScrapeError(errKindNoData, "[%s] no session token in validate response", c.address)
	}

	c.breaker.reset(c.address)
	c.tokens.put(c.cacheKey(), token)
	return token, nil
}

// releaseToken evicts this commander's cached token early.
func (c *commanderClient) releaseToken() {
	c.tokens.release(c.cacheKey())
}

// fetchForecourtDiagnostics retrieves and parses the forecourt
// diagnostics document. Without a usable token it returns immediately,
// no network call is made.
func (c *commanderClient) fetchForecourtDiagnostics() (*diagnosticsSnapshot, *scrapeError) {
	token, serr := c.getToken()
	if serr != nil {
		return nil, serr
	}

	body, serr := c.doQuery("vforecourtdiagnostics", url.Values{"cookie": {token}})
	if serr != nil {
		return nil, serr
	}

	snapshot, err := parseForecourtDiagnostics(body)
	if err != nil {
		return nil, newScrapeError(errKindParse, "[%s] cannot parse forecourt diagnostics: %v", c.address, err)
	}

	return snapshot, nil
}

// fetchLoyaltyFepStatus reports the connection state of the first
// payment processor whose name matches one of the configured loyalty
// program names. A nil result with a nil error means the commander has
// no matching loyalty processor, which is distinct from a failure.
func (c *commanderClient) fetchLoyaltyFepStatus(loyaltyNames []string) (*bool, *scrapeError) {
	token, serr := c.getToken()
	if serr != nil {
		return nil, serr
	}

	body, serr := c.doQuery("vpaymentdiagnostics", url.Values{"cookie": {token}})
	if serr != nil {
		return nil, serr
	}

	connected, found, err := parseLoyaltyFepStatus(body, loyaltyNames)
	if err != nil {
		return nil, newScrapeError(errKindParse, "[%s] cannot parse payment diagnostics: %v", c.address, err)
	}
	if !found {
		return nil, nil
	}

	return &connected, nil
}

// fetchPrimaryFepStatus reports the name and connection state of the
// primary-flagged payment processor. A nil result with a nil error
// means no processor is flagged primary.
//
// The commander has no combined payment query, so this is a second
// independent vpaymentdiagnostics call per cycle.
func (c *commanderClient) fetchPrimaryFepStatus() (*primaryFepStatus, *scrapeError) {
	token, serr := c.getToken()
	if serr != nil {
		return nil, serr
	}

	body, serr := c.doQuery("vpaymentdiagnostics", url.Values{"cookie": {token}})
	if serr != nil {
		return nil, serr
	}

	status, err := parsePrimaryFepStatus(body)
	if err != nil {
		return nil, newScrapeError(errKindParse, "[%s] cannot parse payment diagnostics: %v", c.address, err)
	}

	return status, nil
}

func (c *commanderClient) doQuery(cmd string, params url.Values) ([]byte, *scrapeError) {
	params.Set("cmd", cmd)
	reqURL := fmt.Sprintf("https://%s/cgi-bin/CGILink?%s", c.address, params.Encode())

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, classifyTransportError(c.address, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Errorf("[%s] Cannot close response body reader.", c.address)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, newScrapeError(errKindHTTPAuth, "[%s] commander returned %s, check credentials", c.address, resp.Status)
		}
		return nil, newScrapeError(errKindHTTPOther, "[%s] commander returned %s for cmd=%s", c.address, resp.Status, cmd)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(c.address, err)
	}

	return body, nil
}

// extractCookie pulls the session token out of the first cookie element
// of a validate response, wherever the vendor nests it.
func extractCookie(body []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}

		startElement, ok := token.(xml.StartElement)
		if !ok || startElement.Name.Local != "cookie" {
			continue
		}

		var value string
		if err := decoder.DecodeElement(&value, &startElement); err != nil {
			return "", err
		}
		return strings.TrimSpace(value), nil
	}
}
