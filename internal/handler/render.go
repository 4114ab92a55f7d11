package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"synapse-service/internal/userapi"
)

const (
	mediaJSON           = "application/json"
	mediaJavascript     = "application/javascript"
	mediaTextJavascript = "text/javascript"
)

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][0-9A-Za-z_$]*(\.[A-Za-z_$][0-9A-Za-z_$]*)*$`)

// Renderer negotiates the response format and renders payloads and exceptions.
type Renderer struct {
	defaultAccept     string
	displayExceptions bool
	logger            *zap.Logger
}

func NewRenderer(defaultAccept string, displayExceptions bool, logger *zap.Logger) *Renderer {
	if defaultAccept == "" {
		defaultAccept = mediaJSON
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{defaultAccept: defaultAccept, displayExceptions: displayExceptions, logger: logger}
}

// ErrorBody is the exception strategy payload.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// negotiate picks the first supported media type by quality, falling back to the default.
func (rd *Renderer) negotiate(r *http.Request) string {
	header := r.Header.Get("Accept")
	if header == "" {
		return rd.defaultAccept
	}

	type candidate struct {
		media string
		q     float64
	}
	var candidates []candidate
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		media := strings.ToLower(strings.TrimSpace(fields[0]))
		q := 1.0
		for _, p := range fields[1:] {
			p = strings.TrimSpace(p)
			if v, ok := strings.CutPrefix(p, "q="); ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					q = f
				}
			}
		}
		if media != "" && q > 0 {
			candidates = append(candidates, candidate{media, q})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].q > candidates[j].q })

	for _, c := range candidates {
		switch c.media {
		case mediaJSON, mediaJavascript, mediaTextJavascript:
			return c.media
		case "*/*", "application/*":
			return rd.defaultAccept
		}
	}
	return rd.defaultAccept
}

// JSON writes v with the negotiated renderer. JSONP is used only when a valid callback is given.
func (rd *Renderer) JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		rd.logger.Error("Failed to encode response", zap.Error(err))
		w.Header().Set("Content-Type", mediaJSON)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"Internal Server Error"}}`))
		return
	}

	media := rd.negotiate(r)
	callback := r.URL.Query().Get("callback")
	if media != mediaJSON && callbackPattern.MatchString(callback) {
		w.Header().Set("Content-Type", media)
		w.WriteHeader(status)
		w.Write([]byte(callback + "("))
		w.Write(body)
		w.Write([]byte(");"))
		return
	}

	w.Header().Set("Content-Type", mediaJSON)
	w.WriteHeader(status)
	w.Write(body)
}

// Exception renders err through the exception strategy. Remote user API codes in the
// 400-599 range become the response status, everything else is a 500.
func (rd *Renderer) Exception(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var apiErr *userapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 600 {
		status = apiErr.Code
	}

	message := http.StatusText(status)
	if rd.displayExceptions {
		message = err.Error()
	}

	rd.logger.Error("Request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err))

	rd.JSON(w, r, status, ErrorBody{Error: ErrorDetail{Code: status, Message: message}})
}

// Status renders a plain error payload with the given status.
func (rd *Renderer) Status(w http.ResponseWriter, r *http.Request, status int, message string) {
	rd.JSON(w, r, status, ErrorBody{Error: ErrorDetail{Code: status, Message: message}})
}
