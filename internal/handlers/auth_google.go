package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/auth"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/utils"
)

const (
	stateCookie       = "oauth_state"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateCookieMaxAge = 10 * 60
)

type GoogleOAuthHandler struct {
	Auth            *auth.Service
	Session         *AuthHandler
	JWTSecret       string
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	Log             *zap.Logger
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// safeNext keeps redirects on the frontend origin.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	next := safeNext(c.Query("next", "/"))
	st := randomState(32)

	// state and next travel together, sealed, in one short-lived cookie
	sealed, err := utils.Seal(h.JWTSecret, st+"|"+next)
	if err != nil {
		return fail500(c, h.Log, "Could not start Google sign in", err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    sealed,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   stateCookieMaxAge,
	})

	authURL := h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline)
	return c.Redirect(authURL, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *GoogleOAuthHandler) readState(c *fiber.Ctx) (state, next string, err error) {
	raw := c.Cookies(stateCookie)
	if raw == "" {
		return "", "", utils.ErrSealBroken
	}
	plain, err := utils.Open(h.JWTSecret, raw)
	if err != nil {
		return "", "", err
	}
	state, next, found := strings.Cut(plain, "|")
	if !found {
		return "", "", utils.ErrSealBroken
	}
	return state, safeNext(next), nil
}

func (h *GoogleOAuthHandler) loginError(c *fiber.Ctx, msg string) error {
	return c.Redirect(h.FrontendBaseURL+"/auth/login?err="+url.QueryEscape(msg), http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing code/state")
	}

	want, next, err := h.readState(c)
	if err != nil || want != state {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid state")
	}
	c.Cookie(&fiber.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1, HTTPOnly: true, Secure: false, SameSite: "Lax"})

	tok, err := h.oauthCfg().Exchange(c.UserContext(), code)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Failed to exchange code")
	}

	client := h.oauthCfg().Client(c.UserContext(), tok)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Failed to fetch userinfo")
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Failed to decode userinfo")
	}

	u, err := h.Auth.GoogleUser(c.UserContext(), gu.Email, gu.Name, gu.Picture)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).SendString("Email not found from Google")
	case errors.Is(err, auth.ErrInactive):
		return h.loginError(c, "Account is not active")
	case err != nil:
		if h.Log != nil {
			h.Log.Error("google sign in", zap.Error(err))
		}
		return h.loginError(c, "Could not sign in with Google")
	}

	if err := h.Session.setSession(c, u); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to sign jwt")
	}
	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}
