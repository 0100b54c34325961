package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/auth"
	"github.com/sakif/sleepfit-stats/internal/service"
)

const stateCookie = "fitbit_oauth_state"

// AuthHandler serves registration, login and the Fitbit connect flow.
//
//   - HandleRegister / HandleLogin → email and password accounts
//   - HandleMe / HandleLogout      → current session
//   - HandleFitbitConnect          → redirect to the Fitbit consent page
//   - HandleFitbitCallback         → exchange the code, link or create the
//     user, redirect to the frontend with a token
type AuthHandler struct {
	auth        *service.AuthService
	fitbit      *auth.FitbitProvider // nil when Fitbit credentials are not configured
	frontendURL string
	tokenTTL    time.Duration
	logger      *slog.Logger
}

func NewAuthHandler(
	svc *service.AuthService,
	fitbit *auth.FitbitProvider,
	frontendURL string,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:        svc,
		fitbit:      fitbit,
		frontendURL: frontendURL,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin checks credentials and issues a token.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the caller.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), id)
	if err != nil {
		h.logger.Error("HandleMe: user not found", slog.String("userID", id))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the token cookie. Bearer tokens stay valid until
// they expire; the client is expected to drop its copy.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// HandleFitbitConnect starts the OAuth flow.
//
// HTTP: GET /api/auth/fitbit
//
// A random state is stored in a short-lived HttpOnly cookie and checked on
// callback, so only flows started here can complete.
func (h *AuthHandler) HandleFitbitConnect(w http.ResponseWriter, r *http.Request) {
	if h.fitbit == nil {
		writeError(w, apperror.Unauthorized("fitbit integration is not configured"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.fitbit.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleFitbitCallback completes the OAuth flow.
//
// HTTP: GET /api/auth/fitbit/callback?code=xxx&state=yyy
//
// The caller's existing session, if any, comes from OptionalAuth. Every
// failure ends in a redirect to the frontend error page rather than a JSON
// body, because the browser is in the middle of a top-level navigation.
func (h *AuthHandler) HandleFitbitCallback(w http.ResponseWriter, r *http.Request) {
	if h.fitbit == nil {
		h.fail(w, r, "fitbit integration is not configured")
		return
	}

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || r.URL.Query().Get("state") != c.Value {
		h.fail(w, r, "state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if e := r.URL.Query().Get("error"); e != "" {
		h.fail(w, r, "authorization denied: "+e)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.fail(w, r, "missing code")
		return
	}

	token, profile, err := h.fitbit.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, r, err.Error())
		return
	}

	current, _ := auth.UserIDFromContext(r.Context())
	res, err := h.auth.FitbitLogin(r.Context(), current, token, profile)
	if err != nil {
		h.fail(w, r, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.frontendURL+"/auth/success?token="+url.QueryEscape(res.Token), http.StatusSeeOther)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	h.logger.Warn("fitbit callback failed", slog.String("reason", reason))
	http.Redirect(w, r, h.frontendURL+"/auth/error?message=fitbit_connection_failed", http.StatusSeeOther)
}
