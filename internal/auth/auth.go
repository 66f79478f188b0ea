package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nutrilens/internal/storage"
	"nutrilens/internal/web"
)

// ErrInvalidCredentials is returned when email/password don't match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SessionManager signs and validates lightweight session tokens.
type SessionManager struct {
	Secret       []byte
	Duration     time.Duration
	CookieName   string
	SecureCookie bool
}

// Claims captures decoded session data.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// Middleware attaches the authenticated user to the request context when a
// valid session cookie exists.
type Middleware struct {
	Store    storage.Store
	Sessions SessionManager
}

// Handler exposes the signup/login/logout page flow.
type Handler struct {
	Store    storage.Store
	Sessions SessionManager
	Pages    *web.Renderer
}

// InjectUser parses the session cookie (if present) and loads the user into context.
func (m Middleware) InjectUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.Sessions.cookieName())
		if err == nil && cookie.Value != "" {
			if claims, err := m.Sessions.Parse(cookie.Value); err == nil && claims.ExpiresAt.After(time.Now()) {
				if user, err := m.Store.GetUserByID(r.Context(), claims.UserID); err == nil {
					r = r.WithContext(web.WithUser(r.Context(), user))
				}
			} else if err != nil {
				// Clear unusable cookies to avoid loops.
				clear := m.Sessions.expiredCookie()
				http.SetCookie(w, &clear)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// LoginPage handles GET /login.
func (h Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.Pages.Render(w, r, "login.html", nil)
}

// Login handles POST /login.
func (h Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		web.SetFlash(w, "danger", "Invalid form submission.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	email := normalizeEmail(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	user, err := h.authenticate(r, email, password)
	if err != nil {
		web.SetFlash(w, "danger", "Invalid credentials!")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.setSessionCookie(w, user.ID)
	web.SetFlash(w, "success", "Login successful!")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// SignupPage handles GET /signup.
func (h Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.Pages.Render(w, r, "signup.html", nil)
}

// Signup handles POST /signup.
func (h Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		web.SetFlash(w, "danger", "Invalid form submission.")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	email := normalizeEmail(r.PostFormValue("email"))
	phone := strings.TrimSpace(r.PostFormValue("phone"))
	password := r.PostFormValue("password")

	if name == "" || email == "" || len(password) < 6 {
		web.SetFlash(w, "danger", "Name, email and a password of at least 6 characters are required.")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		web.SetFlash(w, "danger", "Could not create account.")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	_, err = h.Store.CreateUser(r.Context(), storage.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashed),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			web.SetFlash(w, "danger", "Email already exists!")
		} else {
			web.SetFlash(w, "danger", "Could not create account.")
		}
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	web.SetFlash(w, "success", "Account created successfully! Please login.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout handles GET /logout.
func (h Handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie := h.Sessions.expiredCookie()
	http.SetCookie(w, &cookie)
	web.SetFlash(w, "info", "Logged out successfully.")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h Handler) authenticate(r *http.Request, email, password string) (storage.User, error) {
	if email == "" || password == "" {
		return storage.User{}, ErrInvalidCredentials
	}
	user, err := h.Store.GetUserByEmail(r.Context(), email)
	if err != nil {
		return storage.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return storage.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Parse validates a token and returns session claims.
func (sm SessionManager) Parse(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Claims{}, errors.New("invalid token format")
	}
	payload := parts[0]
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, sm.Secret)
	mac.Write([]byte(payload))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return Claims{}, errors.New("signature mismatch")
	}

	payloadParts := strings.Split(payload, "|")
	if len(payloadParts) != 2 {
		return Claims{}, errors.New("invalid payload")
	}
	userID := payloadParts[0]
	expUnix, err := strconv.ParseInt(payloadParts[1], 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("parse expiry: %w", err)
	}
	return Claims{UserID: userID, ExpiresAt: time.Unix(expUnix, 0)}, nil
}

// Issue builds a signed session token for the given user.
func (sm SessionManager) Issue(userID string) (string, time.Time, error) {
	if len(sm.Secret) == 0 {
		return "", time.Time{}, errors.New("session secret missing")
	}
	expires := time.Now().Add(sm.sessionDuration())
	payload := fmt.Sprintf("%s|%d", userID, expires.Unix())
	mac := hmac.New(sha256.New, sm.Secret)
	mac.Write([]byte(payload))
	sig := mac.Sum(nil)
	token := payload + "." + base64.RawURLEncoding.EncodeToString(sig)
	return token, expires, nil
}

func (h Handler) setSessionCookie(w http.ResponseWriter, userID string) {
	token, exp, err := h.Sessions.Issue(userID)
	if err != nil {
		http.Error(w, "could not create session", http.StatusInternalServerError)
		return
	}
	cookie := h.Sessions.cookie(token, exp)
	http.SetCookie(w, &cookie)
}

func (sm SessionManager) cookie(token string, expires time.Time) http.Cookie {
	return http.Cookie{
		Name:     sm.cookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.SecureCookie,
	}
}

func (sm SessionManager) expiredCookie() http.Cookie {
	return http.Cookie{
		Name:     sm.cookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.SecureCookie,
	}
}

func (sm SessionManager) cookieName() string {
	if sm.CookieName != "" {
		return sm.CookieName
	}
	return "session_token"
}

func (sm SessionManager) sessionDuration() time.Duration {
	if sm.Duration <= 0 {
		return 7 * 24 * time.Hour
	}
	return sm.Duration
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
