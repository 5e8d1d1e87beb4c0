// Package supabase talks to the hosted identity service (GoTrue) and the profile row store (PostgREST)
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/fahndung/backend/internal/metrics"
	"go.uber.org/zap"
)

const (
	contentTypeJSON   = "application/json"
	acceptSingleRow   = "application/vnd.pgrst.object+json"
	profilesTable     = "user_profiles"
	maxErrorBodyBytes = 64 * 1024
)

// Options configures a Client
type Options struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	JWTSecret      string
	RequestTimeout time.Duration
}

// Client is the shared connection to one Supabase project.
// Per-visitor auth state lives in AuthClient values created by NewAuthClient.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
	verifier   *TokenVerifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a client with a tuned HTTP transport
func NewClient(opts Options, logger *zap.Logger) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	var verifier *TokenVerifier
	if opts.JWTSecret != "" {
		verifier = NewTokenVerifier(opts.JWTSecret)
	}

	return &Client{
		baseURL:    opts.URL,
		anonKey:    opts.AnonKey,
		serviceKey: opts.ServiceRoleKey,
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		verifier:   verifier,
		logger:     logger,
		now:        time.Now,
	}
}

// request describes one call to the backend
type request struct {
	method  string
	path    string
	query   url.Values
	token   string
	apiKey  string
	headers map[string]string
	body    any
}

// errorBody covers the error shapes of GoTrue and PostgREST
type errorBody struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Message, b.Msg, b.ErrorDescription, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (b errorBody) code() string {
	if b.ErrorCode != "" {
		return b.ErrorCode
	}
	if b.Code != nil {
		return fmt.Sprint(b.Code)
	}
	return ""
}

// do executes the request and decodes a successful JSON response into out
func (c *Client) do(ctx context.Context, req request, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
		}
		metrics.BackendRequestDuration.WithLabelValues(req.method, outcome).Observe(time.Since(start).Seconds())
	}()

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	apiKey := req.apiKey
	if apiKey == "" {
		apiKey = c.anonKey
	}
	token := req.token
	if token == "" {
		token = apiKey
	}
	httpReq.Header.Set("apikey", apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", contentTypeJSON)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}
	for key, value := range req.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("supabase request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err),
		)
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.statusError(req, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindUnexpected, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

func (c *Client) statusError(req request, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var parsed errorBody
	_ = json.Unmarshal(raw, &parsed)

	backendErr := &Error{
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Code:    parsed.code(),
		Message: parsed.text(),
	}
	if backendErr.Message == "" {
		backendErr.Message = http.StatusText(resp.StatusCode)
	}

	c.logger.Debug("supabase returned an error",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.String("code", backendErr.Code),
		zap.String("kind", string(backendErr.Kind)),
	)

	return backendErr
}

// serviceRequest marks req as an administrative call authorized by the service role key
func (c *Client) serviceRequest(req request) (request, error) {
	if c.serviceKey == "" {
		return req, ErrServiceKeyMissing
	}
	req.apiKey = c.serviceKey
	req.token = c.serviceKey
	return req, nil
}
