package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/adfharrison1/go-tours/pkg/ratelimit"
)

const (
	csrfField  = "csrf_token"
	csrfHeader = "X-CSRF-Token"

	maxFormBytes = 4 << 20
	// maxFormMemory is how much of a multipart body is held in memory
	maxFormMemory = 8 << 20
)

type sessionKey struct{}

// HashPassword returns the bcrypt hash stored in the admin config
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkCredentials compares against the configured account. The bcrypt
// comparison runs even for a wrong username.
func (a *Admin) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.opts.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(a.opts.PasswordHash), []byte(password))
	return userOK && passErr == nil && a.opts.Username != ""
}

// sessionFrom returns the session attached by the auth middleware
func sessionFrom(r *http.Request) *Session {
	sess, _ := r.Context().Value(sessionKey{}).(*Session)
	return sess
}

func (a *Admin) cookieSession(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return a.sessions.Get(cookie.Value)
}

// authed requires a session for the admin pages, redirecting to the login
// page without one. Every POST must carry the session's CSRF token.
func (a *Admin) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := a.cookieSession(r)
		if !ok {
			if isWebsocket(r) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			target := "/admin/login"
			if r.Method == http.MethodGet && r.URL.Path != "/admin" && r.URL.Path != "/admin/" {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		if r.Method == http.MethodPost {
			if err := a.parseForm(w, r); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "Invalid form", http.StatusBadRequest)
				return
			}
			token := r.Header.Get(csrfHeader)
			if token == "" {
				token = r.PostFormValue(csrfField)
			}
			if !validCSRF(sess, token) {
				a.logger.Warn("Rejected request with a bad CSRF token",
					zap.String("path", r.URL.Path),
					zap.String("ip", ratelimit.ClientIP(r, a.opts.TrustProxy)))
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// RequireAPIAuth guards the JSON API. It accepts the admin session cookie,
// with the CSRF token in the X-CSRF-Token header for writes, or HTTP basic
// auth with the admin credentials for scripts.
func (a *Admin) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if username, password, ok := r.BasicAuth(); ok {
			ip := ratelimit.ClientIP(r, a.opts.TrustProxy)
			if a.login.Blocked(ip) {
				writeJSONError(w, http.StatusTooManyRequests, "too many login attempts")
				return
			}
			if !a.checkCredentials(username, password) {
				a.login.Allow(ip)
				w.Header().Set("WWW-Authenticate", `Basic realm="go-tours admin"`)
				writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		sess, ok := a.cookieSession(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !safeMethod(r.Method) && !validCSRF(sess, r.Header.Get(csrfHeader)) {
			writeJSONError(w, http.StatusForbidden, "invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (a *Admin) parseForm(w http.ResponseWriter, r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		limit := a.maxUpload() + maxFormBytes
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		return r.ParseMultipartForm(maxFormMemory)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}

func validCSRF(sess *Session, token string) bool {
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRF)) == 1
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// HandleLoginPage shows the login form
func (a *Admin) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.cookieSession(r); ok {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	a.render(w, r, http.StatusOK, "login", "Sign in", LoginView{Next: safeNext(r.URL.Query().Get("next"))})
}

// HandleLogin checks the submitted credentials and starts a session
func (a *Admin) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	view := LoginView{
		Username: r.PostFormValue("username"),
		Next:     safeNext(r.PostFormValue("next")),
	}

	ip := ratelimit.ClientIP(r, a.opts.TrustProxy)
	if !a.login.Allow(ip) {
		a.logger.Warn("Login rate limited", zap.String("ip", ip))
		view.Error = "Too many attempts. Wait a minute and try again."
		a.render(w, r, http.StatusTooManyRequests, "login", "Sign in", view)
		return
	}
	if !a.checkCredentials(view.Username, r.PostFormValue("password")) {
		a.logger.Warn("Failed login", zap.String("ip", ip), zap.String("username", view.Username))
		view.Error = "Wrong username or password."
		a.render(w, r, http.StatusUnauthorized, "login", "Sign in", view)
		return
	}

	a.login.Reset(ip)
	sess := a.sessions.Create(view.Username)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   a.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	a.logger.Info("Admin logged in", zap.String("username", sess.Username), zap.String("ip", ip))

	target := view.Next
	if target == "" {
		target = "/admin"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// HandleLogout ends the session
func (a *Admin) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r); sess != nil {
		a.sessions.Delete(sess.Token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// safeNext only allows redirects back into the admin panel
func safeNext(next string) string {
	if (next != "/admin" && !strings.HasPrefix(next, "/admin/")) || strings.Contains(next, "\\") {
		return ""
	}
	if strings.HasPrefix(next, "/admin/login") {
		return ""
	}
	return next
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
		"code":    status,
	})
}
