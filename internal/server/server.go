package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"findlost/internal/app"
	"findlost/internal/domain"
	"findlost/internal/ratelimit"
	"findlost/internal/token"
	"findlost/internal/util"
)

// tokenCookieName is the fixed cookie carrying the session token.
const tokenCookieName = "token"

const defaultTokenRateLimitPerMinute = 10

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                     *app.App
	Tokens                  *token.Service
	RedisAddr               string
	RedisPassword           string
	TokenRateLimitPerMinute int
	CookieSecure            bool
	AllowedOrigins          []string
	TrustedProxyCIDRs       []string
}

// Server exposes the HTTP endpoints of the lost-and-found backend.
type Server struct {
	app            *app.App
	tokens         *token.Service
	mux            *http.ServeMux
	tokenLimiter   *ratelimit.FixedWindowLimiter
	cookieSecure   bool
	allowedOrigins []string
	trustedProxies *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires an app")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("server requires a token service")
	}
	limit := cfg.TokenRateLimitPerMinute
	if limit <= 0 {
		limit = defaultTokenRateLimitPerMinute
	}
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "findlost:ratelimit:jwt", limit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init token limiter: %w", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		tokens:         cfg.Tokens,
		mux:            http.NewServeMux(),
		tokenLimiter:   limiter,
		cookieSecure:   cfg.CookieSecure,
		allowedOrigins: cfg.AllowedOrigins,
		trustedProxies: trusted,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(
		util.WithCORS(s.allowedOrigins,
			util.WithRequestID(
				util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// session tokens
	s.mux.HandleFunc("/jwt", s.handleIssueToken)

	// items
	s.mux.HandleFunc("/items", s.handleItems)
	s.mux.HandleFunc("/items/recoveries", s.handleItemRecoveryCounts)
	s.mux.HandleFunc("/items/", s.handleItemSubroutes)

	// recoveries
	s.mux.Handle("/recoveries", s.authenticated(s.handleRecoveries))
	s.mux.HandleFunc("/recoveries/", s.handleRecoverySubroutes)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "lost and found server is running")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// access guard
type identityHandler func(http.ResponseWriter, *http.Request, domain.Identity)

// authenticated gates a route behind the token cookie. A missing cookie fails
// immediately without touching the token service; each request is verified
// exactly once and nothing is cached across requests.
func (s *Server) authenticated(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized access")
			return
		}
		next(w, r, ident)
	})
}

func (s *Server) authorize(r *http.Request) (domain.Identity, bool) {
	cookie, err := r.Cookie(tokenCookieName)
	if err != nil || cookie.Value == "" {
		s.audit(r, "token.verify", "fail", "reason", "missing_cookie")
		return domain.Identity{}, false
	}
	claims, err := s.tokens.Verify(cookie.Value)
	if err != nil {
		s.audit(r, "token.verify", "fail", "reason", "invalid_token")
		return domain.Identity{}, false
	}
	ident := token.IdentityFromClaims(claims)
	s.audit(r, "token.verify", "success", "email", ident.Email)
	return ident, true
}

// POST /jwt
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	key := util.ClientIP(r, s.trustedProxies)
	if !s.tokenLimiter.Allow(key) {
		s.audit(r, "token.issue", "rate_limited", "ip", key)
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "too many token requests")
		return
	}
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tok, err := s.tokens.Issue(payload)
	if err != nil {
		s.internalError(w, r, "issue token", err)
		return
	}
	s.audit(r, "token.issue", "success")
	http.SetCookie(w, s.tokenCookie(tok))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// tokenCookie builds the session cookie. SameSite=None requires the secure
// flag, so cross-site mode is only active when the cookie is secure.
func (s *Server) tokenCookie(value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		MaxAge:   int(s.tokens.TTL().Seconds()),
		SameSite: http.SameSiteLaxMode,
	}
	if s.cookieSecure {
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

// GET|POST /items
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListItems(r.URL.Query().Get("email"))
		if err != nil {
			s.internalError(w, r, "list items", err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var payload map[string]any
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item, err := s.app.CreateItem(payload)
		if err != nil {
			s.internalError(w, r, "create item", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"acknowledged": true,
			"insertedId":   item.ID,
		})
	default:
		methodNotAllowed(w)
	}
}

// GET /items/recoveries
func (s *Server) handleItemRecoveryCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.ListItemsWithRecoveryCounts(r.URL.Query().Get("email"))
	if err != nil {
		s.internalError(w, r, "list items with recovery counts", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// /items/{id}, /items/{id}/image, /items/{id}/image-url
func (s *Server) handleItemSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/items/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 1 {
		s.handleGetItem(w, r, id)
		return
	}
	switch parts[1] {
	case "image":
		s.authenticated(func(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
			s.handleUploadItemImage(w, r, id)
		}).ServeHTTP(w, r)
	case "image-url":
		s.handleItemImageURL(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// GET /items/{id}. An unknown id responds 200 with a null body; absence has
// never been an error on this route and clients rely on that.
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	item, ok, err := s.app.GetItem(id)
	if err != nil {
		s.internalError(w, r, "get item", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// POST /items/{id}/image
func (s *Server) handleUploadItemImage(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required (field: image)")
		return
	}
	defer file.Close()
	key, url, err := s.app.AttachItemImage(r.Context(), id, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		s.writeImageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

// GET /items/{id}/image-url
func (s *Server) handleItemImageURL(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	url, err := s.app.ItemImageURL(r.Context(), id)
	if err != nil {
		s.writeImageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) writeImageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrImageStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "image storage unavailable")
	case errors.Is(err, app.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	default:
		s.internalError(w, r, "item image", err)
	}
}

// GET|POST /recoveries (gated)
func (s *Server) handleRecoveries(w http.ResponseWriter, r *http.Request, ident domain.Identity) {
	switch r.Method {
	case http.MethodGet:
		email := r.URL.Query().Get("email")
		if email != ident.Email {
			s.audit(r, "recoveries.list", "fail", "reason", "email_mismatch", "email", email)
			writeError(w, http.StatusForbidden, "forbidden access")
			return
		}
		recs, err := s.app.RecoveriesByClaimant(email)
		if err != nil {
			s.internalError(w, r, "list recoveries", err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	case http.MethodPost:
		var input app.RecoveryInput
		if err := decodeJSON(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		rec, err := s.app.CreateRecovery(input, ident)
		if err != nil {
			var verr *app.ValidationError
			if errors.As(err, &verr) {
				writeError(w, http.StatusBadRequest, verr.Error())
				return
			}
			s.internalError(w, r, "create recovery", err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	default:
		methodNotAllowed(w)
	}
}

// /recoveries/item/{item_id} (gated), /recoveries/{id}
func (s *Server) handleRecoverySubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/recoveries/")
	if itemID, ok := strings.CutPrefix(path, "item/"); ok {
		if itemID == "" || strings.Contains(itemID, "/") {
			http.NotFound(w, r)
			return
		}
		s.authenticated(func(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
			s.handleRecoveriesByItem(w, r, itemID)
		}).ServeHTTP(w, r)
		return
	}
	id := path
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	s.handleUpdateRecoveryStatus(w, r, id)
}

// GET /recoveries/item/{item_id}
func (s *Server) handleRecoveriesByItem(w http.ResponseWriter, r *http.Request, itemID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	recs, err := s.app.RecoveriesByItem(itemID)
	if err != nil {
		s.internalError(w, r, "list recoveries by item", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// PATCH /recoveries/{id}. This route carries no authorization check; that
// matches the upstream behavior and is tracked as an open gap.
func (s *Server) handleUpdateRecoveryStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	modified, err := s.app.UpdateRecoveryStatus(id, body.Status)
	if err != nil {
		s.internalError(w, r, "update recovery status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"modifiedCount": modified})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error("request failed",
		"op", op,
		"err", err,
		"path", r.URL.Path,
		"request_id", util.RequestIDFromRequest(r),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
