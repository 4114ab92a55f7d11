package userapi

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"synapse-service/internal/util"
)

// AuthResponse is the normalized answer of the identity endpoints.
type AuthResponse struct {
	Code        int         `json:"code"`
	Identity    bool        `json:"identity"`
	HasIdentity bool        `json:"hasIdentity"`
	Errors      *AuthErrors `json:"errors,omitempty"`
}

type AuthErrors struct {
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// authTemplates maps a remote status to its canned response; 0 covers everything else.
var authTemplates = map[int]AuthResponse{
	200: {Code: 200, Identity: true},
	400: {Code: 400, Errors: &AuthErrors{Message: "Invalid sso token"}},
	401: {Code: 401, Errors: &AuthErrors{Message: "Invalid sso token"}},
	403: {Code: 403, Errors: &AuthErrors{
		Reason:  "Forbidden",
		Message: "The server understood the request, but is refusing to fulfill it",
	}},
	0: {Code: 401, Errors: &AuthErrors{
		Reason:  "Unauthorized",
		Message: "The request requires user authentication",
	}},
}

func template(status int) AuthResponse {
	if t, ok := authTemplates[status]; ok {
		return t
	}
	return authTemplates[0]
}

// Identity is the identity document returned by the SSO service.
type Identity struct {
	raw string
}

func (i Identity) Raw() json.RawMessage         { return json.RawMessage(i.raw) }
func (i Identity) Get(path string) gjson.Result { return gjson.Get(i.raw, path) }

func (i Identity) MarshalJSON() ([]byte, error) {
	if i.raw == "" {
		return []byte("null"), nil
	}
	return []byte(i.raw), nil
}

type Organisation struct {
	ID           string          `json:"id"`
	Name         string          `json:"name,omitempty"`
	Applications []Application   `json:"applications,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

type Application struct {
	ID   string          `json:"id"`
	Name string          `json:"name,omitempty"`
	Raw  json.RawMessage `json:"-"`
}

// User is bound to one SSO token for the lifetime of a request and caches every answer.
type User struct {
	client *Client
	sso    string

	mu    sync.Mutex
	cache map[string]interface{}
}

func (u *User) SSO() string { return u.sso }

type contextKey struct{}

// NewContext binds u to ctx.
func NewContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the user bound by NewContext, or nil.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(contextKey{}).(*User)
	return u
}

func (u *User) cached(key string) (interface{}, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	v, ok := u.cache[key]
	return v, ok
}

func (u *User) stash(key string, v interface{}) {
	u.mu.Lock()
	u.cache[key] = v
	u.mu.Unlock()
}

// HasIdentity asks whether the token is valid. Only the status code is used.
func (u *User) HasIdentity(ctx context.Context) (AuthResponse, error) {
	if v, ok := u.cached(URITypeHasAuth); ok {
		return v.(AuthResponse), nil
	}

	uri, err := compile(u.client.cfg.AuthURI, ErrNoAuthURI, u.sso)
	if err != nil {
		return AuthResponse{}, err
	}

	status, _, err := u.client.get(ctx, uri)
	resp := template(status)
	resp.HasIdentity = status == 200
	if err != nil {
		return resp, err
	}

	u.stash(URITypeHasAuth, resp)
	return resp, nil
}

// GetIdentity fetches the identity document. The decoded body's top-level keys win over
// the status template, so a body without "response" inherits the template's.
func (u *User) GetIdentity(ctx context.Context) (Identity, error) {
	if v, ok := u.cached(URITypeAuthIdent); ok {
		return v.(Identity), nil
	}

	uri, err := compile(u.client.cfg.AuthIdentURI, ErrNoAuthIdentURI, u.sso)
	if err != nil {
		return Identity{}, err
	}

	status, body, err := u.client.get(ctx, uri)
	if err != nil {
		return Identity{}, err
	}

	merged, err := mergeOverTemplate(body, template(status))
	if err != nil {
		return Identity{}, err
	}

	response := gjson.Get(merged, "response")
	if !truthy(response.Get("identity")) {
		message := "Invalid response"
		code := status
		if response.Exists() {
			if m := response.Get("errors.message"); m.Exists() {
				message = m.String()
			} else if r := response.Get("errors.reason"); r.Exists() {
				message = r.String()
			}
			if c := response.Get("code"); c.Exists() {
				code = int(c.Int())
			}
		}
		util.Warn("SSO identity rejected", zap.Int("code", code), zap.String("message", message))
		return Identity{}, &Error{Code: code, Message: message}
	}

	identity := Identity{raw: merged}
	u.stash(URITypeAuthIdent, identity)
	return identity, nil
}

func mergeOverTemplate(body []byte, tmpl AuthResponse) (string, error) {
	doc := map[string]json.RawMessage{}
	if len(body) > 0 && gjson.ValidBytes(body) && gjson.ParseBytes(body).IsObject() {
		if err := json.Unmarshal(body, &doc); err != nil {
			return "", err
		}
	}
	if _, ok := doc["response"]; !ok {
		raw, err := json.Marshal(tmpl)
		if err != nil {
			return "", err
		}
		doc["response"] = raw
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// GetOrganisations lists the organisations of the identity's groups keyed by id. A nil map
// means the identity carries no group list; super users get an empty map.
func (u *User) GetOrganisations(ctx context.Context) (map[string]Organisation, error) {
	identity, err := u.GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	groups := identity.Get("data.items.groups")
	if !groups.IsArray() {
		return nil, nil
	}

	organisations := make(map[string]Organisation)
	for _, group := range groups.Array() {
		org := group.Get("organisation")
		if !org.IsObject() || !org.Get("id").Exists() {
			continue
		}
		o := Organisation{
			ID:   org.Get("id").String(),
			Name: org.Get("name").String(),
			Raw:  json.RawMessage(org.Raw),
		}
		for _, app := range org.Get("applications").Array() {
			o.Applications = append(o.Applications, Application{
				ID:   app.Get("id").String(),
				Name: app.Get("name").String(),
				Raw:  json.RawMessage(app.Raw),
			})
		}
		organisations[o.ID] = o
	}
	return organisations, nil
}

// GetApplications collects applications across organisations, or only orgID's when set.
func (u *User) GetApplications(ctx context.Context, orgID *int) (map[string]Application, error) {
	organisations, err := u.GetOrganisations(ctx)
	if err != nil {
		return nil, err
	}

	if orgID != nil {
		key := strconv.Itoa(*orgID)
		if org, ok := organisations[key]; ok {
			organisations = map[string]Organisation{key: org}
		} else {
			organisations = nil
		}
	}

	applications := make(map[string]Application)
	for _, org := range organisations {
		for _, app := range org.Applications {
			applications[app.ID] = app
		}
	}
	return applications, nil
}

// IsAllowed checks the ACL for module/resource/permission. Empty permission and module
// fall back to "read" and the configured default module.
func (u *User) IsAllowed(ctx context.Context, remoteIP, resource, permission, module string) (bool, error) {
	if u.client.whitelisted(remoteIP) {
		return true, nil
	}
	if module == "" {
		module = u.client.DefaultModule()
	}
	if permission == "" {
		permission = DefaultPermission
	}

	key := URITypeIsAllowed + "-" + module + "-" + resource + "-" + permission
	if v, ok := u.cached(key); ok {
		return truthy(gjson.Get(v.(string), "response.hasAccess")), nil
	}

	uri, err := compile(u.client.cfg.IsAllowedURI, ErrNoIsAllowedURI, u.sso, module, resource, permission)
	if err != nil {
		return false, err
	}

	status, body, err := u.client.get(ctx, uri)
	if err != nil {
		return false, err
	}
	if status != 200 {
		return false, nil
	}

	u.stash(key, string(body))
	return truthy(gjson.GetBytes(body, "response.hasAccess")), nil
}

// GetAclRules returns the decoded rules, or false when the service did not answer 200.
func (u *User) GetAclRules(ctx context.Context) (interface{}, bool, error) {
	body, ok := u.cached(URITypeACLRules)
	if !ok {
		uri, err := compile(u.client.cfg.ACLRulesURI, ErrNoACLRulesURI, u.sso)
		if err != nil {
			return nil, false, err
		}
		status, raw, err := u.client.get(ctx, uri)
		if err != nil {
			return nil, false, err
		}
		if status != 200 {
			return nil, false, nil
		}
		u.stash(URITypeACLRules, raw)
		body = raw
	}

	var rules interface{}
	if err := json.Unmarshal(body.([]byte), &rules); err != nil {
		return nil, false, err
	}
	return rules, true, nil
}

// truthy follows loose scripting truthiness: empty strings, "0", zero, null, false and
// empty containers are false.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != "" && r.Str != "0"
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	default:
		return false
	}
}
