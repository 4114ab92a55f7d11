package handler

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"synapse-service/internal/userapi"
	"synapse-service/internal/util"
)

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("request_id", middleware.GetReqID(r.Context())),
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ExceptionStrategy recovers panics and renders them as exception payloads.
func ExceptionStrategy(rd *Renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				rd.logger.Error("Recovered from panic",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				rd.Exception(w, r, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// UserStrategy binds a request-scoped SSO user to the context. The token comes from the
// sso query parameter, then the Authorization header.
func UserStrategy(client *userapi.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil {
				next.ServeHTTP(w, r)
				return
			}
			user := client.ForToken(ssoToken(r))
			next.ServeHTTP(w, r.WithContext(userapi.NewContext(r.Context(), user)))
		})
	}
}

func ssoToken(r *http.Request) string {
	if sso := r.URL.Query().Get("sso"); sso != "" {
		return sso
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return auth
}

// Authorize checks the ACL for the route's resource and the method's permission.
func Authorize(rd *Renderer, module string, disabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if disabled {
				next.ServeHTTP(w, r)
				return
			}

			resource := routeResource(r)
			permission := methodPermission(r.Method)

			user := userapi.FromContext(r.Context())
			if user == nil {
				rd.Status(w, r, http.StatusForbidden, denied(module, resource, permission))
				return
			}

			allowed, err := user.IsAllowed(r.Context(), remoteIP(r), resource, permission, module)
			if err != nil {
				rd.Exception(w, r, err)
				return
			}
			if !allowed {
				rd.logger.Warn("Permission denied",
					zap.String("module", module),
					zap.String("resource", resource),
					zap.String("permission", permission))
				rd.Status(w, r, http.StatusForbidden, denied(module, resource, permission))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denied(module, resource, permission string) string {
	return fmt.Sprintf("Permission denied for route %s / %s : %s", module, resource, permission)
}

func methodPermission(method string) string {
	switch method {
	case http.MethodGet:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	default:
		return strings.ToLower(method)
	}
}

// routeResource is the first path segment, e.g. "customers" for /customers/4/devices.
func routeResource(r *http.Request) string {
	path := strings.Trim(r.URL.Path, "/")
	resource, _, _ := strings.Cut(path, "/")
	return resource
}

// remoteIP strips the port; RealIP has already rewritten RemoteAddr when proxied.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
