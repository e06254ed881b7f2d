package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/vegfest-api/internal/authz"
	"github.com/gdg-garage/vegfest-api/internal/config"
	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"

	TokenDuration = 24 * time.Hour
	CookieName    = "auth_token"
)

// RoleChecker looks up guild roles for a Discord account.
type RoleChecker interface {
	HasRole(discordUserID, roleID string) (bool, error)
}

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	cfg         *config.Config
	roles       RoleChecker
	logger      *slog.Logger
}

type Option func(*AuthHandler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *AuthHandler) {
		h.logger = logger
	}
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, roles RoleChecker, opts ...Option) *AuthHandler {
	h := &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:     db,
		cfg:    cfg,
		roles:  roles,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	url := h.oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(r.Context(), token)
	resp, err := client.Get(DiscordUserAPI)
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var discordUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&discordUser); err != nil {
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	var user models.User
	if err := h.db.FirstOrInit(&user, models.User{DiscordID: discordUser.ID}).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	user.Username = discordUser.Username
	user.Email = discordUser.Email
	user.Avatar = discordUser.Avatar
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if h.cfg.IsSuperAdmin(user.DiscordID) {
		user.Role = models.RoleSuperAdmin
		user.Approver = true
	}
	h.syncDiscordApprover(r.Context(), &user)

	if err := h.db.Save(&user).Error; err != nil {
		http.Error(w, "Failed to save user", http.StatusInternalServerError)
		return
	}

	jwtToken, err := h.GenerateToken(user.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.sessionCookie(jwtToken))
	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) GenerateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// ParseToken validates a session token and returns its user id and expiry.
func (h *AuthHandler) ParseToken(tokenString string) (uint, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, time.Time{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, time.Time{}, errors.New("invalid token claims")
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return 0, time.Time{}, errors.New("invalid token claims")
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	return uint(userIDFloat), expiresAt, nil
}

// AuthInput carries the credentials of a huma operation. Embed it in request types.
type AuthInput struct {
	Cookie string `header:"Cookie" doc:"Session cookie (auth_token)"`
	APIKey string `header:"X-API-KEY" doc:"API key"`
}

// Authorize returns the id of the user behind the request credentials. An API
// key takes precedence over the session cookie.
func (h *AuthHandler) Authorize(ctx context.Context, input AuthInput) (uint, error) {
	if input.APIKey != "" {
		userID, err := h.userForAPIKey(ctx, input.APIKey)
		if err != nil {
			return 0, huma.Error401Unauthorized("Unauthorized: " + err.Error())
		}
		return userID, nil
	}

	if input.Cookie == "" {
		return 0, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	var tokenString string
	for _, c := range parseCookies(input.Cookie) {
		if c.Name == CookieName {
			tokenString = c.Value
			break
		}
	}
	if tokenString == "" {
		return 0, huma.Error401Unauthorized("Unauthorized: No token found")
	}

	userID, _, err := h.ParseToken(tokenString)
	if err != nil {
		return 0, huma.Error401Unauthorized("Unauthorized: Invalid token")
	}
	return userID, nil
}

// Principal authorizes the request and resolves the user's capabilities.
func (h *AuthHandler) Principal(ctx context.Context, input AuthInput) (authz.Principal, error) {
	userID, err := h.Authorize(ctx, input)
	if err != nil {
		return authz.Principal{}, err
	}
	return h.PrincipalFor(ctx, userID)
}

func (h *AuthHandler) PrincipalFor(ctx context.Context, userID uint) (authz.Principal, error) {
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Principal{}, huma.Error401Unauthorized("Unauthorized: unknown user")
		}
		return authz.Principal{}, huma.Error500InternalServerError("Failed to load user")
	}

	var extra authz.Capability
	if user.DiscordApprover {
		extra |= authz.ReviewRegistrations | authz.VoteRegistrations
	}
	return authz.Resolve(user, extra), nil
}

// syncDiscordApprover refreshes the stored approver role grant. It runs on
// login only; a failed lookup keeps the previous grant.
func (h *AuthHandler) syncDiscordApprover(ctx context.Context, user *models.User) {
	if h.cfg.ApproverDiscordRoleID == "" {
		user.DiscordApprover = false
		return
	}
	hasRole, err := h.CheckRole(user.DiscordID, h.cfg.ApproverDiscordRoleID)
	if err != nil {
		h.logger.WarnContext(ctx, "approver role lookup failed, keeping stored grant",
			"error", err,
			"discord_id", user.DiscordID,
			"discord_approver", user.DiscordApprover,
		)
		return
	}
	user.DiscordApprover = hasRole
}

// CheckRole reports whether the Discord account holds roleID. Without a role
// source every check is false.
func (h *AuthHandler) CheckRole(discordID, roleID string) (bool, error) {
	if h.roles == nil || roleID == "" || discordID == "" {
		return false, nil
	}
	return h.roles.HasRole(discordID, roleID)
}

func (h *AuthHandler) userForAPIKey(ctx context.Context, key string) (uint, error) {
	var keyModel models.APIKey
	if err := h.db.WithContext(ctx).Where("key = ?", key).First(&keyModel).Error; err != nil {
		return 0, errors.New("invalid API key")
	}
	now := time.Now()
	if keyModel.Expired(now) {
		return 0, errors.New("API key expired")
	}
	if err := h.db.WithContext(ctx).Model(&keyModel).Update("last_used_at", now).Error; err != nil {
		h.logger.WarnContext(ctx, "failed to record API key use", "error", err, "api_key_id", keyModel.ID)
	}
	return keyModel.UserID, nil
}

func parseCookies(header string) []*http.Cookie {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return nil
	}
	return cookies
}

type MeResponse struct {
	Body struct {
		ID           uint        `json:"id"`
		Username     string      `json:"username"`
		Email        string      `json:"email"`
		Avatar       string      `json:"avatar"`
		Role         models.Role `json:"role"`
		Capabilities []string    `json:"capabilities"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeResponse, error) {
	principal, err := h.Principal(ctx, *input)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, principal.UserID).Error; err != nil {
		return nil, huma.Error404NotFound("User not found")
	}

	resp := &MeResponse{}
	resp.Body.ID = user.ID
	resp.Body.Username = user.Username
	resp.Body.Email = user.Email
	resp.Body.Avatar = user.Avatar
	resp.Body.Role = user.Role
	resp.Body.Capabilities = principal.Capabilities()
	return resp, nil
}
