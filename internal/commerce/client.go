// Package commerce talks to the remote commerce backend that owns carts,
// orders and payment intents.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/techstore-checkout/pkg/auth"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

const maxErrorBody = 4 << 10

// Client is the shared HTTP transport for every commerce endpoint.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logg    *logger.Logger
}

// NewClient builds a client rooted at cfg.BaseURL. The request timeout
// bounds every call.
func NewClient(cfg config.CommerceConfig, httpClient *http.Client, logg *logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid commerce base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid commerce base url %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Client{baseURL: base, http: httpClient, logg: logg}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	rel := &url.URL{Path: strings.TrimPrefix(path, "/")}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	target := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := auth.AccessTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"endpoint": method + " " + path,
			"status":   resp.StatusCode,
		}), "commerce.request_rejected")
		return statusError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(method, path, err)
	}
	// A caller that expects a body must not treat silence as an empty result.
	if len(bytes.TrimSpace(raw)) == 0 {
		return pkgerrors.New(pkgerrors.CodeServiceRejected, fmt.Sprintf("empty %s %s response", method, path)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeServiceRejected, err, fmt.Sprintf("decoding %s %s response", method, path)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	return nil
}

func transportError(method, path string, err error) error {
	details := map[string]any{"endpoint": method + " " + path}
	var netErr net.Error
	if stdErrors.Is(err, context.DeadlineExceeded) || (stdErrors.As(err, &netErr) && netErr.Timeout()) {
		details["timeout"] = true
	}
	if stdErrors.Is(err, context.Canceled) {
		details["cancelled"] = true
	}
	return pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, "commerce service unreachable").WithDetails(details)
}

func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := remoteMessage(raw)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return pkgerrors.New(pkgerrors.CodeUnauthenticated, "authentication required").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	return pkgerrors.New(pkgerrors.CodeServiceRejected, msg).
		WithDetails(map[string]any{
			"status":   resp.StatusCode,
			"endpoint": method + " " + path,
		})
}

// remoteMessage extracts the human readable message from an error body.
func remoteMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var envelope struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		switch v := envelope.Error.(type) {
		case string:
			return v
		case map[string]any:
			if m, ok := v["message"].(string); ok {
				return m
			}
		}
		return ""
	}
	text := string(raw)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
