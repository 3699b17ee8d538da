package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/MonitorForge/internal/config"
	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/domain/user"
	"github.com/Strob0t/MonitorForge/internal/port/database"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

const (
	tokenAudience = "monitorforge"
	tokenIssuer   = "monitorforge-core"
)

// AuthService handles authentication, JWT tokens, API keys and user
// management within the acting tenant.
type AuthService struct {
	store   database.Store
	tenants *TenantService
	auditor *Auditor
	logger  *slog.Logger
	cfg     config.Auth
	secret  []byte
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.Store, tenants *TenantService, auditor *Auditor, logger *slog.Logger, cfg config.Auth) *AuthService {
	return &AuthService{
		store:   store,
		tenants: tenants,
		auditor: auditor,
		logger:  logger,
		cfg:     cfg,
		secret:  []byte(cfg.JWTSecret),
	}
}

// Register creates a new user in the acting tenant with a bcrypt-hashed
// password.
func (s *AuthService) Register(ctx context.Context, req user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, user.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
		Enabled:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionUserCreated,
		ResourceType: "user",
		ResourceID:   u.ID,
	})
	return u, nil
}

// Login authenticates a user by email and password and issues an access
// token scoped to the user's tenant. A suspended tenant cannot log in.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !u.Enabled {
		return nil, errors.New("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	t, err := s.tenants.GetTenant(ctx, u.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if !t.IsActive {
		return nil, errors.New("tenant is suspended")
	}

	accessToken, err := s.signJWT(u)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	// Login precedes any bound tenant scope; record under the user's own.
	s.auditor.Emit(tenantctx.Bind(ctx, tenantctx.TenantContext{
		TenantID:      u.TenantID,
		PrincipalID:   u.ID,
		PrincipalKind: tenantctx.PrincipalUser,
		Role:          u.Role,
	}), audit.Event{
		Action:       audit.ActionUserLogin,
		ResourceType: "user",
		ResourceID:   u.ID,
	})

	return &user.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.cfg.TokenTTL.Seconds()),
		User:        *u,
	}, nil
}

// ValidateAccessToken verifies a JWT and returns the claims.
func (s *AuthService) ValidateAccessToken(tokenStr string) (*user.TokenClaims, error) {
	return s.verifyJWT(tokenStr)
}

// ValidateAPIKey looks up an API key by its SHA-256 hash and checks expiry.
func (s *AuthService) ValidateAPIKey(ctx context.Context, plainKey string) (*user.APIKey, error) {
	if !strings.HasPrefix(plainKey, user.APIKeyPrefix) {
		return nil, errors.New("invalid api key")
	}

	key, err := s.store.GetAPIKeyByHash(ctx, hashSHA256(plainKey))
	if err != nil {
		return nil, errors.New("invalid api key")
	}
	if key.Expired(time.Now()) {
		return nil, errors.New("api key expired")
	}
	return key, nil
}

// CreateAPIKey generates a new API key in the acting tenant. The plain key
// is returned exactly once.
func (s *AuthService) CreateAPIKey(ctx context.Context, req user.CreateAPIKeyRequest) (*user.CreateAPIKeyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// A key cannot outrank the principal creating it.
	tc, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	if !tc.Role.AtLeast(req.Role) {
		return nil, errors.New("cannot create a key with a higher role than your own")
	}

	rawKey, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	plainKey := user.APIKeyPrefix + rawKey

	var expiresAt time.Time
	if req.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	}

	key, err := s.store.CreateAPIKey(ctx, user.APIKey{
		Name:      req.Name,
		Prefix:    plainKey[:12], // "mfk_" + 8 chars
		KeyHash:   hashSHA256(plainKey),
		Role:      req.Role,
		Scopes:    req.Scopes,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionAPIKeyCreated,
		ResourceType: "api_key",
		ResourceID:   key.ID,
	})

	return &user.CreateAPIKeyResponse{
		APIKey:   *key,
		PlainKey: plainKey,
	}, nil
}

// ListAPIKeys returns the acting tenant's API keys.
func (s *AuthService) ListAPIKeys(ctx context.Context) ([]user.APIKey, error) {
	return s.store.ListAPIKeys(ctx)
}

// RevokeAPIKey removes an API key from the acting tenant.
func (s *AuthService) RevokeAPIKey(ctx context.Context, id string) error {
	if err := s.store.DeleteAPIKey(ctx, id); err != nil {
		return err
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionAPIKeyRevoked,
		ResourceType: "api_key",
		ResourceID:   id,
	})
	return nil
}

// ListUsers returns the acting tenant's users.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// GetUser returns a user in the acting tenant by id.
func (s *AuthService) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.store.GetUser(ctx, id)
}

// UpdateUser updates user fields (name, role, enabled).
func (s *AuthService) UpdateUser(ctx context.Context, id string, req user.UpdateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	u, err := s.store.UpdateUser(ctx, id, req)
	if err != nil {
		return nil, err
	}

	changes, _ := json.Marshal(req)
	s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionUserUpdated,
		ResourceType: "user",
		ResourceID:   u.ID,
		Changes:      changes,
	})
	return u, nil
}

// --- JWT implementation (HS256 with stdlib) ---

// jwtHeader is the fixed base64url-encoded header for HS256.
var jwtHeader = base64URLEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))

type signedClaims struct {
	user.TokenClaims
	Audience string `json:"aud"`
	Issuer   string `json:"iss"`
}

func (s *AuthService) signJWT(u *user.User) (string, error) {
	now := time.Now()
	claims := signedClaims{
		TokenClaims: user.TokenClaims{
			UserID:   u.ID,
			Email:    u.Email,
			Name:     u.Name,
			Role:     u.Role,
			TenantID: u.TenantID,
			IssuedAt: now.Unix(),
			Expiry:   now.Add(s.cfg.TokenTTL).Unix(),
		},
		Audience: tokenAudience,
		Issuer:   tokenIssuer,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payloadB64 := base64URLEncode(payload)
	signingInput := jwtHeader + "." + payloadB64

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	sig := base64URLEncode(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

func (s *AuthService) verifyJWT(tokenStr string) (*user.TokenClaims, error) {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 {
		return nil, errors.New("malformed token")
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	expectedSig := base64URLEncode(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, errors.New("invalid signature")
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var claims signedClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	if time.Now().Unix() > claims.Expiry {
		return nil, errors.New("token expired")
	}
	if claims.Audience != tokenAudience {
		return nil, errors.New("invalid token audience")
	}
	if claims.Issuer != tokenIssuer {
		return nil, errors.New("invalid token issuer")
	}

	return &claims.TokenClaims, nil
}

// --- Helpers ---

func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func base64URLDecode(s string) ([]byte, error) {
	// Add padding back
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}

func hashSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
