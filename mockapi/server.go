// Package mockapi is an in-process stand-in for the wallet backend.
//
// It serves the same endpoints the backend client calls (config, password
// and OTP auth, logout, user profile and the OAuth entry points) with
// in-memory accounts and HS256 tokens, so the gateway can run end to end
// without the real API.
package mockapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/alexlup06-authgate/walletgate/backend"
)

const (
	defaultOTPCode     = "123456"
	defaultTokenTTL    = time.Hour
	defaultCallbackURL = "http://localhost:8080/oauth/callback"
	otpTTL             = 5 * time.Minute
)

// Config configures the mock backend.
type Config struct {
	// Secret signs access tokens. Required.
	Secret []byte

	// CallbackURL is where the OAuth entry points send the browser back to,
	// with token and return_url in the query.
	CallbackURL string

	// OTPCode is the only code VerifyOTP accepts.
	OTPCode string

	TokenTTL time.Duration

	// AppName and WalletEnabled are served from the config endpoint.
	AppName       string
	WalletEnabled bool

	Logger *slog.Logger
	Now    func() time.Time
}

type account struct {
	id        uuid.UUID
	name      string
	email     string
	phone     string
	hash      []byte
	createdAt time.Time
}

// Server is an http.Handler implementing the backend API.
type Server struct {
	cfg    Config
	issuer *issuer
	logger *slog.Logger
	router chi.Router

	mu       sync.Mutex
	byID     map[uuid.UUID]*account
	byEmail  map[string]*account
	byPhone  map[string]*account
	pending  map[string]time.Time
	limiters map[string]*rate.Limiter
	revoked  map[string]struct{}
}

func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("mockapi: secret is required")
	}
	if cfg.CallbackURL == "" {
		cfg.CallbackURL = defaultCallbackURL
	}
	if cfg.OTPCode == "" {
		cfg.OTPCode = defaultOTPCode
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:      cfg,
		issuer:   newIssuer(cfg.Secret, cfg.TokenTTL, cfg.Now),
		logger:   cfg.Logger,
		byID:     make(map[uuid.UUID]*account),
		byEmail:  make(map[string]*account),
		byPhone:  make(map[string]*account),
		pending:  make(map[string]time.Time),
		limiters: make(map[string]*rate.Limiter),
		revoked:  make(map[string]struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(backend.ConfigPath, s.handleConfig)
	r.Post(backend.LoginPath, s.handleLogin)
	r.Post(backend.RegisterPath, s.handleRegister)
	r.Post(backend.OTPSendPath, s.handleOTPSend)
	r.Post(backend.OTPVerifyPath, s.handleOTPVerify)
	r.Post(backend.LogoutPath, s.handleLogout)
	r.Get("/auth/{provider}", s.handleOAuth)
	r.Get(backend.UserPath, s.handleUser)
	s.router = r

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddAccount registers a password account and returns its id.
func (s *Server) AddAccount(name, email, phone, password string) (uuid.UUID, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	if _, exists := s.byEmail[email]; exists {
		return uuid.Nil, errEmailTaken
	}

	a := &account{
		id:        uuid.New(),
		name:      name,
		email:     email,
		phone:     phone,
		hash:      hash,
		createdAt: s.cfg.Now().UTC(),
	}
	s.insertLocked(a)
	return a.id, nil
}

var errEmailTaken = errors.New("mockapi: email already registered")

func (s *Server) insertLocked(a *account) {
	s.byID[a.id] = a
	if a.email != "" {
		s.byEmail[a.email] = a
	}
	if a.phone != "" {
		s.byPhone[a.phone] = a
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeData(w, "", map[string]any{
		"app_name":       s.cfg.AppName,
		"wallet_enabled": s.cfg.WalletEnabled,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req backend.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	a := s.byEmail[normalizeEmail(req.Email)]
	s.mu.Unlock()

	if a == nil || len(a.hash) == 0 ||
		bcrypt.CompareHashAndPassword(a.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	s.writeToken(w, a, "signed in")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req backend.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "email and password are required")
		return
	}

	id, err := s.AddAccount(req.Name, req.Email, req.Phone, req.Password)
	if errors.Is(err, errEmailTaken) {
		writeError(w, http.StatusConflict, "email_taken", err.Error())
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "register", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	// Accounts with a phone number sign in after verifying it.
	if req.Phone != "" {
		if !s.sendCode(req.Phone) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many codes requested")
			return
		}
		writeData(w, "verification code sent", nil)
		return
	}

	s.mu.Lock()
	a := s.byID[id]
	s.mu.Unlock()
	s.writeToken(w, a, "account created")
}

func (s *Server) handleOTPSend(w http.ResponseWriter, r *http.Request) {
	var req backend.OTPSendRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "phone is required")
		return
	}

	if !s.sendCode(req.Phone) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many codes requested")
		return
	}
	writeData(w, "verification code sent", nil)
}

// sendCode records a pending code for phone. It reports false when the
// phone has exceeded its send budget.
func (s *Server) sendCode(phone string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.limiters[phone]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute), 3)
		s.limiters[phone] = lim
	}
	if !lim.AllowN(s.cfg.Now(), 1) {
		return false
	}

	s.pending[phone] = s.cfg.Now().Add(otpTTL)
	s.logger.Info("mock otp issued", "phone", phone, "code", s.cfg.OTPCode)
	return true
}

func (s *Server) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	var req backend.OTPVerifyRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	expires, ok := s.pending[req.Phone]
	valid := ok && s.cfg.Now().Before(expires) && req.Code == s.cfg.OTPCode
	if valid {
		delete(s.pending, req.Phone)
	}
	a := s.byPhone[req.Phone]
	if valid && a == nil {
		a = &account{id: uuid.New(), phone: req.Phone, createdAt: s.cfg.Now().UTC()}
		s.insertLocked(a)
	}
	s.mu.Unlock()

	if !valid {
		writeError(w, http.StatusUnauthorized, "invalid_code", "the code is invalid or expired")
		return
	}
	s.writeToken(w, a, "phone verified")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, sid, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing token")
		return
	}

	s.mu.Lock()
	s.revoked[sid] = struct{}{}
	s.mu.Unlock()

	writeData(w, "signed out", nil)
}

// handleOAuth stands in for the whole provider round trip: it signs the
// visitor in as a per-provider demo account and returns to the callback.
func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	email := provider + "@oauth.mock"

	s.mu.Lock()
	a := s.byEmail[email]
	if a == nil {
		a = &account{id: uuid.New(), name: provider + " user", email: email, createdAt: s.cfg.Now().UTC()}
		s.insertLocked(a)
	}
	s.mu.Unlock()

	token, _, err := s.issuer.issue(a.id)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "issue oauth token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	q := url.Values{"token": {token}}
	if ret := r.URL.Query().Get("return_url"); ret != "" {
		q.Set("return_url", ret)
	}

	target := s.cfg.CallbackURL
	if strings.Contains(target, "?") {
		target += "&" + q.Encode()
	} else {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing token")
		return
	}

	s.mu.Lock()
	a := s.byID[userID]
	s.mu.Unlock()
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unknown user")
		return
	}

	writeData(w, "", backend.User{
		ID:        a.id.String(),
		Email:     a.email,
		Name:      a.name,
		Phone:     a.phone,
		CreatedAt: a.createdAt,
	})
}

// authenticate verifies the bearer token and rejects revoked sessions.
func (s *Server) authenticate(r *http.Request) (uuid.UUID, string, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return uuid.Nil, "", false
	}

	userID, sid, err := s.issuer.verify(raw)
	if err != nil {
		return uuid.Nil, "", false
	}

	s.mu.Lock()
	_, revoked := s.revoked[sid]
	s.mu.Unlock()
	if revoked {
		return uuid.Nil, "", false
	}
	return userID, sid, true
}

func (s *Server) writeToken(w http.ResponseWriter, a *account, msg string) {
	token, _, err := s.issuer.issue(a.id)
	if err != nil {
		s.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeData(w, msg, map[string]string{"token": token})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, msg string, data any) {
	body := map[string]any{"success": true}
	if msg != "" {
		body["message"] = msg
	}
	if data != nil {
		body["data"] = data
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": msg},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
