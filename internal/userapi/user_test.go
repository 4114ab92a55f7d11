package userapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse-service/internal/config"
)

const identityBody = `{
  "response": {"code": 200, "identity": {"id": 17, "name": "ops"}},
  "data": {"items": {"groups": [
    {"organisation": {"id": 1, "name": "Acme", "applications": [{"id": 10, "name": "tv"}, {"id": 11, "name": "radio"}]}},
    {"organisation": {"id": 2, "name": "Globex", "applications": [{"id": 20, "name": "vod"}]}},
    {"name": "no organisation"}
  ]}}
}`

type fakeSSO struct {
	srv   *httptest.Server
	calls atomic.Int32
}

func newFakeSSO(t *testing.T, handler http.HandlerFunc) *fakeSSO {
	t.Helper()
	f := &fakeSSO{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSSO) client(extra ...func(*config.UserAPIConfig)) *Client {
	cfg := config.UserAPIConfig{
		AuthURI:       f.srv.URL + "/auth/%s",
		AuthIdentURI:  f.srv.URL + "/identity/%s",
		IsAllowedURI:  f.srv.URL + "/acl/%s/%s/%s/%s",
		ACLRulesURI:   f.srv.URL + "/rules/%s",
		DefaultModule: "synapse",
	}
	for _, fn := range extra {
		fn(&cfg)
	}
	return NewClient(cfg, f.srv.Client())
}

func TestHasIdentity(t *testing.T) {
	tests := []struct {
		status      int
		hasIdentity bool
		code        int
		message     string
	}{
		{200, true, 200, ""},
		{400, false, 400, "Invalid sso token"},
		{401, false, 401, "Invalid sso token"},
		{403, false, 403, "The server understood the request, but is refusing to fulfill it"},
		{500, false, 401, "The request requires user authentication"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			sso := newFakeSSO(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			user := sso.client().ForToken("tok")

			resp, err := user.HasIdentity(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.hasIdentity, resp.HasIdentity)
			assert.Equal(t, tt.code, resp.Code)
			if tt.message != "" {
				require.NotNil(t, resp.Errors)
				assert.Equal(t, tt.message, resp.Errors.Message)
			}

			_, err = user.HasIdentity(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int32(1), sso.calls.Load(), "second call must be served from cache")
		})
	}
}

func TestGetIdentity(t *testing.T) {
	sso := newFakeSSO(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identity/tok", r.URL.Path)
		w.Write([]byte(identityBody))
	})
	user := sso.client().ForToken("tok")

	identity, err := user.GetIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ops", identity.Get("response.identity.name").String())

	_, err = user.GetIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), sso.calls.Load())
}

func TestGetIdentityErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    int
		message string
	}{
		{"template message", 401, "", 401, "Invalid sso token"},
		{"body message wins", 403, `{"response":{"code":498,"identity":false,"errors":{"message":"expired"}}}`, 498, "expired"},
		{"reason fallback", 200, `{"response":{"identity":0,"errors":{"reason":"Locked"}}}`, 200, "Locked"},
		{"no details", 200, `{"response":{"identity":""}}`, 200, "Invalid response"},
		{"non json body", 500, "oops", 401, "The request requires user authentication"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sso := newFakeSSO(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := sso.client().ForToken("tok").GetIdentity(context.Background())
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestOrganisationsAndApplications(t *testing.T) {
	sso := newFakeSSO(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(identityBody))
	})
	user := sso.client().ForToken("tok")
	ctx := context.Background()

	orgs, err := user.GetOrganisations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "Acme", orgs["1"].Name)

	apps, err := user.GetApplications(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, apps, 3)

	two := 2
	apps, err = user.GetApplications(ctx, &two)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "vod", apps["20"].Name)

	missing := 99
	apps, err = user.GetApplications(ctx, &missing)
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestIsAllowed(t *testing.T) {
	sso := newFakeSSO(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/customers/read"):
			w.Write([]byte(`{"response":{"hasAccess":true}}`))
		case strings.HasSuffix(r.URL.Path, "/customers/update"):
			w.Write([]byte(`{"response":{"hasAccess":false}}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	})
	user := sso.client().ForToken("tok")
	ctx := context.Background()

	ok, err := user.IsAllowed(ctx, "10.0.0.1", "customers", "", "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = user.IsAllowed(ctx, "10.0.0.1", "customers", "update", "synapse")
	require.NoError(t, err)
	assert.False(t, ok)

	// cached per tuple
	ok, err = user.IsAllowed(ctx, "10.0.0.1", "customers", "read", "synapse")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(2), sso.calls.Load())

	ok, err = user.IsAllowed(ctx, "10.0.0.1", "packages", "read", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAllowedWhitelist(t *testing.T) {
	sso := newFakeSSO(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	client := sso.client(func(c *config.UserAPIConfig) { c.IPWhitelist = []string{"127.0.0.1"} })

	ok, err := client.ForToken("").IsAllowed(context.Background(), "127.0.0.1", "customers", "read", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(0), sso.calls.Load())
}

func TestGetAclRules(t *testing.T) {
	status := http.StatusOK
	sso := newFakeSSO(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"rules":[{"resource":"customers","permission":"read"}]}`))
	})

	rules, ok, err := sso.client().ForToken("tok").GetAclRules(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, rules.(map[string]interface{}), "rules")

	status = http.StatusUnauthorized
	rules, ok, err = sso.client().ForToken("tok").GetAclRules(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rules)
}

func TestMissingURIAndNetworkFailure(t *testing.T) {
	client := NewClient(config.UserAPIConfig{}, nil)
	_, err := client.ForToken("tok").HasIdentity(context.Background())
	assert.ErrorIs(t, err, ErrNoAuthURI)

	_, _, err = client.ForToken("tok").GetAclRules(context.Background())
	assert.ErrorIs(t, err, ErrNoACLRulesURI)

	down := NewClient(config.UserAPIConfig{AuthIdentURI: "http://127.0.0.1:1/identity/%s"}, nil)
	_, err = down.ForToken("tok").GetIdentity(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Code)
}

func TestContextRoundTrip(t *testing.T) {
	u := NewClient(config.UserAPIConfig{}, nil).ForToken("abc")
	ctx := NewContext(context.Background(), u)
	assert.Same(t, u, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
