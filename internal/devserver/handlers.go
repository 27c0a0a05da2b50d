package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/deeptutor/sessiongate/internal/rate"
	"github.com/sirupsen/logrus"
)

const (
	detailBadLogin     = "Incorrect username or password"
	detailBadToken     = "Could not validate credentials"
	detailInactive     = "Inactive user"
	detailUserExists   = "Username already registered"
	detailThrottled    = "Too many requests"
	detailLockedOut    = "Too many failed login attempts"
	detailInternal     = "Internal Server Error"
	maxRequestBodySize = 1 << 16
)

// fieldError mirrors a validation error entry: the detail of a 422 is a list
// of these rather than a string.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.log.WithField("request_id", r.Header.Get("X-Request-ID"))

	if !s.throttle.Allow(clientKey(r)) {
		s.metrics.login("throttled")
		writeDetail(w, http.StatusTooManyRequests, detailThrottled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed form body")
		return
	}
	username, pass := r.PostForm.Get("username"), r.PostForm.Get("password")
	if missing := missingFields(map[string]string{"username": username, "password": pass}); len(missing) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": missing})
		return
	}

	if err := s.lockout.Check(ctx, username); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			s.metrics.login("locked")
			writeDetail(w, http.StatusTooManyRequests, detailLockedOut)
			return
		}
		log.WithError(err).Error("lockout check failed")
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	user, err := s.users.Get(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		log.WithError(err).Error("user lookup failed")
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	ok := false
	if err == nil {
		ok, err = s.hasher.Verify(pass, user.HashedPassword)
		if err != nil {
			log.WithError(err).WithField("username", username).Warn("stored hash unreadable")
		}
	}
	if !ok {
		if _, ferr := s.lockout.Fail(ctx, username); ferr != nil {
			log.WithError(ferr).Warn("failed to record login failure")
		}
		s.metrics.login("rejected")
		s.unauthorized(w, detailBadLogin)
		return
	}

	if err := s.lockout.Reset(ctx, username); err != nil {
		log.WithError(err).Warn("failed to reset lockout")
	}
	token, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		log.WithError(err).Error("token issue failed")
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	s.metrics.login("issued")
	log.WithField("username", user.Username).Info("token issued")
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []fieldError{{Loc: []string{"body"}, Msg: "invalid JSON body", Type: "value_error.jsondecode"}},
		})
		return
	}
	if missing := missingFields(map[string]string{"username": req.Username, "password": req.Password}); len(missing) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": missing})
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.log.WithError(err).Error("password hash failed")
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	user := User{
		Username:       req.Username,
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           "user",
		HashedPassword: hash,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, ErrUserExists) {
			writeDetail(w, http.StatusBadRequest, detailUserExists)
			return
		}
		s.log.WithError(err).Error("user create failed")
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	s.log.WithFields(logrus.Fields{"username": user.Username}).Info("user registered")
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rdb.Ping(r.Context()).Err(); err != nil {
		writeDetail(w, http.StatusServiceUnavailable, "redis unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

// missingFields lists required fields that are empty, in a stable order.
func missingFields(fields map[string]string) []fieldError {
	var out []fieldError
	for _, name := range []string{"username", "password"} {
		if v, ok := fields[name]; ok && v == "" {
			out = append(out, fieldError{Loc: []string{"body", name}, Msg: "field required", Type: "value_error.missing"})
		}
	}
	return out
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
