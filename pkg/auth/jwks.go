package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/resilience"
)

// DefaultJWKSCacheTTL is used when NewJWKSClient gets a non-positive TTL.
const DefaultJWKSCacheTTL = time.Hour

// Consecutive fetch failures before the client stops calling the JWKS
// endpoint, and how long it waits before trying again.
const (
	jwksMaxFailures = 3
	jwksCooldown    = 30 * time.Second
)

// JWKSClient fetches the identity provider's signing keys and caches them by
// key id. An unknown kid forces a refetch, so key rotation is picked up
// before the TTL expires. Fetches go through a circuit breaker so an
// unreachable endpoint is not hit once per incoming request.
type JWKSClient struct {
	url        string
	ttl        time.Duration
	httpClient *http.Client
	logger     logger.Logger
	now        func() time.Time
	breaker    *resilience.CircuitBreaker

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// JWK is one RSA key of a JWKS document.
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSResponse is a JWKS document.
type JWKSResponse struct {
	Keys []JWK `json:"keys"`
}

// NewJWKSClient creates a client for url.
func NewJWKSClient(url string, ttl time.Duration, log logger.Logger) *JWKSClient {
	if ttl <= 0 {
		ttl = DefaultJWKSCacheTTL
	}
	c := &JWKSClient{
		url:        url,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log,
		now:        time.Now,
		keys:       map[string]*rsa.PublicKey{},
	}
	c.breaker = resilience.NewCircuitBreaker(jwksMaxFailures, jwksCooldown,
		resilience.WithClock(func() time.Time { return c.now() }))
	return c
}

// GetKey returns the public key with id kid.
func (c *JWKSClient) GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key := c.cached(kid); key != nil {
		return key, nil
	}

	err := c.breaker.Execute(func() error { return c.refresh(ctx) })
	if err != nil {
		return nil, fmt.Errorf("failed to refresh JWKS: %w", err)
	}
	if key := c.cached(kid); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("key not found: %s", kid)
}

func (c *JWKSClient) cached(kid string) *rsa.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.now().Before(c.expiresAt) {
		return nil
	}
	return c.keys[kid]
}

func (c *JWKSClient) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var doc JWKSResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, jwk := range doc.Keys {
		key, err := parseJWK(jwk)
		if err != nil {
			c.logger.Warn("skipping JWK", "kid", jwk.Kid, "error", err)
			continue
		}
		keys[jwk.Kid] = key
	}
	if len(keys) == 0 {
		return fmt.Errorf("no valid keys found in JWKS response")
	}

	c.mu.Lock()
	c.keys = keys
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()

	c.logger.Info("JWKS cache updated", "key_count", len(keys))
	return nil
}

func parseJWK(jwk JWK) (*rsa.PublicKey, error) {
	if jwk.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type: %s", jwk.Kty)
	}
	n, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}
