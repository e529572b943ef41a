// Package upstream performs the HTTP calls against the new-api metering endpoints.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/logger"
	"github.com/j-veylop/newapi-usage-tui/internal/mask"
)

// Endpoint paths relative to the base domain. They double as fallback keys.
const (
	EndpointUsage = "/api/data/self"
	EndpointLogs  = "/api/log/"
	EndpointUser  = "/api/user/self"
)

const (
	userAgent   = "newapi-usage-tui"
	maxBodySize = 16 << 20
)

// Response is a decoded upstream payload together with its raw bytes.
type Response struct {
	Payload    any
	Raw        json.RawMessage
	StatusCode int
	Duration   time.Duration
}

// Client issues single-attempt GET requests with the configured credentials.
type Client struct {
	httpClient    *http.Client
	baseDomain    string
	authorization string
	newAPIUser    string
}

// NewClient creates a client bounded by cfg.RequestTimeout.
func NewClient(cfg *config.Config) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.RequestTimeout})
}

// NewClientWithHTTP creates a client using the given http.Client.
func NewClientWithHTTP(cfg *config.Config, httpClient *http.Client) *Client {
	return &Client{
		httpClient:    httpClient,
		baseDomain:    strings.TrimRight(cfg.BaseDomain, "/"),
		authorization: cfg.Authorization,
		newAPIUser:    cfg.NewAPIUser,
	}
}

// URL builds the absolute URL for an endpoint.
func (c *Client) URL(endpoint string, query url.Values) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	u := c.baseDomain + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Fetch performs one GET against endpoint. Failures are NetworkError,
// HTTP status errors or NonJSONResponse.
func (c *Client) Fetch(ctx context.Context, endpoint string, query url.Values) (*Response, error) {
	target := c.URL(endpoint, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeNetwork, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	if c.newAPIUser != "" {
		req.Header.Set("New-Api-User", c.newAPIUser)
	}

	logger.Debug("upstream request",
		"url", target,
		"headers", mask.Map(flattenHeader(req.Header)),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classify(err)
	}
	elapsed := time.Since(start)

	logger.Debug("upstream response",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"bytes", len(body),
		"duration", elapsed,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Status(resp.StatusCode, mask.Line(string(body)))
	}

	payload, err := decode(body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Payload:    payload,
		Raw:        json.RawMessage(body),
		StatusCode: resp.StatusCode,
		Duration:   elapsed,
	}, nil
}

// Decode parses a stored or fetched payload the same way Fetch does.
func Decode(raw []byte) (any, error) {
	return decode(raw)
}

func decode(body []byte) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, apperr.Wrap(errors.New("empty body"), apperr.CodeNonJSON, "response is not JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, apperr.Wrap(fmt.Errorf("%w: %s", err, preview(trimmed)), apperr.CodeNonJSON, "response is not JSON")
	}
	if dec.More() {
		return nil, apperr.Wrap(errors.New("trailing data after JSON value"), apperr.CodeNonJSON, "response is not JSON")
	}
	return payload, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Network(apperr.KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Network(apperr.KindTimeout, err)
	}
	return apperr.Network(apperr.KindConnection, err)
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func preview(body []byte) string {
	const limit = 80
	s := mask.Line(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return strconv.Quote(s)
}

// UsageQuery builds the query for /api/data/self over [start, end].
func UsageQuery(start, end time.Time, username string) url.Values {
	q := url.Values{}
	q.Set("username", username)
	q.Set("start_timestamp", strconv.FormatInt(start.Unix(), 10))
	q.Set("end_timestamp", strconv.FormatInt(end.Unix(), 10))
	q.Set("default_time", "hour")
	return q
}

// LogQuery builds the query for the first page of /api/log/ over [start, end].
func LogQuery(start, end time.Time, pageSize int) url.Values {
	q := url.Values{}
	q.Set("p", "1")
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	q.Set("type", "0")
	q.Set("start_timestamp", strconv.FormatInt(start.Unix(), 10))
	q.Set("end_timestamp", strconv.FormatInt(end.Unix(), 10))
	return q
}
