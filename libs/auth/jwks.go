package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

var ErrKeyNotFound = errors.New("jwks key not found")

// minRefetch bounds how often an unknown kid may trigger a fetch.
const minRefetch = 10 * time.Second

// JWKSClient caches the RSA signing keys published by the identity provider.
// Keys are refetched after ttl, or early when a token names an unknown kid.
type JWKSClient struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKSClient(url string, ttl time.Duration) *JWKSClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &JWKSClient{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 5 * time.Second},
		now:    time.Now,
	}
}

func (c *JWKSClient) Get(keyID string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[keyID]
	age := c.now().Sub(c.fetchedAt)
	c.mu.RUnlock()
	if ok && age < c.ttl {
		return key, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another caller may have refreshed while we waited.
	age = c.now().Sub(c.fetchedAt)
	if key, ok := c.keys[keyID]; ok && age < c.ttl {
		return key, nil
	}
	if c.keys == nil || age >= minRefetch {
		keys, err := c.fetch()
		if err != nil {
			// Fall back to the stale key while the endpoint is unreachable.
			if key, ok := c.keys[keyID]; ok {
				return key, nil
			}
			return nil, err
		}
		c.keys, c.fetchedAt = keys, c.now()
	}
	if key, ok := c.keys[keyID]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (c *JWKSClient) fetch() (map[string]*rsa.PublicKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		if pub, err := k.rsaKey(); err == nil {
			keys[k.Kid] = pub
		}
	}
	return keys, nil
}

func (k jsonWebKey) rsaKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil || len(n) == 0 {
		return nil, errors.New("invalid jwk modulus")
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil || len(e) == 0 || len(e) > 4 {
		return nil, errors.New("invalid jwk exponent")
	}
	exp := int(new(big.Int).SetBytes(e).Int64())
	if exp < 3 {
		return nil, errors.New("invalid jwk exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
}
