/**
 * @description
 * This file contains custom middleware for the HTTP router: bearer-token validation,
 * troop membership resolution and role gating.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: token parsing and signature checks.
 * - github.com/go-chi/chi/v5: the {troopID} URL parameter.
 */

package api

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/troopledger/ledger-service/internal/domain"
)

type contextKey string

const (
	subjectKey contextKey = "subject"
	memberKey  contextKey = "member"
)

const jwksCacheTTL = 10 * time.Minute

// TokenVerifier validates bearer tokens. RS256 tokens are checked against the JWKS endpoint,
// HS256 tokens against the shared secret. Either may be unset.
type TokenVerifier struct {
	jwksURL string
	secret  []byte
	client  *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewTokenVerifier(jwksURL, secret string) *TokenVerifier {
	v := &TokenVerifier{
		jwksURL: strings.TrimSpace(jwksURL),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v
}

// Verify parses the token and returns its subject.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, v.keyFor, jwt.WithValidMethods([]string{"RS256", "HS256"}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("subject not found in token")
	}
	return subject, nil
}

func (v *TokenVerifier) keyFor(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, errors.New("HS256 tokens are not accepted")
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.jwksURL == "" {
			return nil, errors.New("RS256 tokens are not accepted")
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("kid not found in token header")
		}
		return v.publicKey(kid)
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

// publicKey serves from the cached key set and refetches when the cache is stale or the kid
// is unknown (key rotation).
func (v *TokenVerifier) publicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.keys[kid]; ok && time.Since(v.fetchedAt) < jwksCacheTTL {
		return key, nil
	}
	keys, err := v.fetchJWKS()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}
	v.keys, v.fetchedAt = keys, time.Now()
	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("key with kid %s not found", kid)
}

func (v *TokenVerifier) fetchJWKS() (map[string]*rsa.PublicKey, error) {
	resp, err := v.client.Get(v.jwksURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			return nil, err
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

// parseRSAPublicKey builds a key from the base64url modulus and exponent.
func parseRSAPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	var exp int
	for _, b := range eb {
		exp = exp<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exp}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the token subject.
func Authenticate(verifier *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}
			subject, err := verifier.Verify(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadMember resolves the token subject to a member of the troop in the URL.
func (h *Handlers) LoadMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := r.Context().Value(subjectKey).(string)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		troopID, err := uuid.Parse(chi.URLParam(r, "troopID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid troop id")
			return
		}
		userID, err := h.service.ResolveInternalUserID(r.Context(), subject)
		if err != nil {
			h.logger.WithError(err).WithField("subject", subject).Warn("user resolution failed")
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		member, err := h.service.GetMember(r.Context(), troopID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusForbidden, "Not a member of this troop")
				return
			}
			h.writeServiceError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), memberKey, member)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request only for members holding one of roles.
func RequireRole(roles ...domain.MemberRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			member, ok := memberFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			for _, role := range roles {
				if member.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Insufficient role for this action")
		})
	}
}

func memberFrom(ctx context.Context) (*domain.TroopMember, bool) {
	member, ok := ctx.Value(memberKey).(*domain.TroopMember)
	return member, ok && member != nil
}
