// Package userapi talks to the remote SSO/ACL service that owns back-office identities.
package userapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"synapse-service/internal/config"
	"synapse-service/internal/util"
)

// Cache keys, also the configuration names of the URI templates.
const (
	URITypeHasAuth   = "has_identity_uri"
	URITypeAuthIdent = "get_auth_identity_uri"
	URITypeIsAllowed = "acl_is_allowed"
	URITypeACLRules  = "acl_rules"

	DefaultPermission     = "read"
	DefaultRequestTimeout = 10 * time.Second
)

var (
	ErrNoAuthURI      = errors.New("no auth URI provided")
	ErrNoAuthIdentURI = errors.New("no auth identity URI provided")
	ErrNoIsAllowedURI = errors.New("no ACL is allowed URI provided")
	ErrNoACLRulesURI  = errors.New("no ACL rules URI provided")
)

// Error carries the remote status code. Code 0 means the request never completed.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("user api error %d: %s", e.Code, e.Message)
}

type Client struct {
	cfg        config.UserAPIConfig
	httpClient *http.Client
	whitelist  map[string]struct{}
}

// NewClient builds a client; a nil httpClient gets one with the configured timeout.
func NewClient(cfg config.UserAPIConfig, httpClient *http.Client) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	whitelist := make(map[string]struct{}, len(cfg.IPWhitelist))
	for _, ip := range cfg.IPWhitelist {
		whitelist[strings.TrimSpace(ip)] = struct{}{}
	}

	return &Client{cfg: cfg, httpClient: httpClient, whitelist: whitelist}
}

// ForToken returns a request-scoped user bound to the SSO token.
func (c *Client) ForToken(sso string) *User {
	return &User{client: c, sso: sso, cache: make(map[string]interface{})}
}

func (c *Client) DefaultModule() string { return c.cfg.DefaultModule }

func (c *Client) whitelisted(remoteIP string) bool {
	_, ok := c.whitelist[remoteIP]
	return ok
}

// compile fills an fmt template, escaping each argument for use in a URL.
func compile(template string, missing error, args ...string) (string, error) {
	if template == "" {
		return "", missing
	}
	escaped := make([]interface{}, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(template, escaped...), nil
}

// get performs the request and returns status and trimmed body. Transport failures
// become *Error with code 0.
func (c *Client) get(ctx context.Context, uri string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return 0, nil, &Error{Code: 0, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.Warn("User API request failed",
			zap.String("uri", redact(uri)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return 0, nil, &Error{Code: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, &Error{Code: 0, Message: err.Error()}
	}

	util.Debug("User API request",
		zap.String("uri", redact(uri)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return resp.StatusCode, []byte(strings.TrimSpace(string(body))), nil
}

// redact drops the query string, which may carry the token.
func redact(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i]
	}
	return uri
}
