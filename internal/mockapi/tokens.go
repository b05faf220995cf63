package mockapi

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyID — идентификатор единственного ключа подписи.
const KeyID = "test-key-1"

// defaultTokenTTL — время жизни токена, если ttl_seconds не задан.
const defaultTokenTTL = time.Hour

// jwksKey — один ключ JWKS (RFC 7517).
type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

// buildJWKS формирует JWKS из публичного RSA ключа.
func buildJWKS(pub *rsa.PublicKey) jwksResponse {
	return jwksResponse{
		Keys: []jwksKey{{
			Kty: "RSA",
			Kid: KeyID,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
}

// tokenRequest — тело POST /token.
type tokenRequest struct {
	Sub        string   `json:"sub"`
	Username   string   `json:"username"`
	Groups     []string `json:"groups"`
	Roles      []string `json:"roles"`
	TTLSeconds int      `json:"ttl_seconds"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type realmAccess struct {
	Roles []string `json:"roles"`
}

// tokenClaims совместимы с JWT middleware Tier2 API.
type tokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string       `json:"preferred_username,omitempty"`
	Groups            []string     `json:"groups,omitempty"`
	RealmAccess       *realmAccess `json:"realm_access,omitempty"`
}

// TokenIssuer подписывает JWT ключом, публикуемым через /jwks.
type TokenIssuer struct {
	key    *rsa.PrivateKey
	issuer string
	jwks   []byte
	logger *slog.Logger
}

// NewTokenIssuer создаёт выпускающего токены и кэширует JWKS.
func NewTokenIssuer(key *rsa.PrivateKey, issuer string, logger *slog.Logger) (*TokenIssuer, error) {
	data, err := json.Marshal(buildJWKS(&key.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("сериализация JWKS: %w", err)
	}
	return &TokenIssuer{
		key:    key,
		issuer: issuer,
		jwks:   data,
		logger: logger.With(slog.String("component", "token_issuer")),
	}, nil
}

// JWKS возвращает JSON набора ключей.
func (t *TokenIssuer) JWKS() []byte {
	return t.jwks
}

// Issue подписывает токен (RS256). username пустой — берётся sub.
func (t *TokenIssuer) Issue(sub, username string, groups, roles []string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if username == "" {
		username = sub
	}
	now := time.Now()

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		PreferredUsername: username,
		Groups:            groups,
	}
	if len(roles) > 0 {
		claims.RealmAccess = &realmAccess{Roles: roles}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = KeyID
	return token.SignedString(t.key)
}

// jwks обрабатывает GET /jwks.
func (h *Handler) jwks(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(h.tokens.JWKS())
}

// issueToken обрабатывает POST /token.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Sub == "" {
		writeMessage(w, http.StatusBadRequest, "Field 'sub' is required")
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	token, err := h.tokens.Issue(req.Sub, req.Username, req.Groups, req.Roles, ttl)
	if err != nil {
		h.logger.Error("Ошибка подписи JWT", slog.String("error", err.Error()))
		writeMessage(w, http.StatusInternalServerError, "Token generation failed")
		return
	}

	h.logger.Info("Токен выдан",
		slog.String("sub", req.Sub),
		slog.Int("groups_count", len(req.Groups)),
		slog.Duration("ttl", ttl),
	)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
