package identity

import (
	"crypto/rsa"
	"net/http"
	"sync"
	"time"
)

// keyCacheTTL is the JWKS refresh interval named in §4.7 point 2 ("keys
// are cached for one hour").
const keyCacheTTL = time.Hour

// keyCache holds the most recently fetched JWKS, refreshed once it is
// older than keyCacheTTL, and also on demand whenever a token carries a kid
// the cache does not hold (covering a key rotation between refreshes).
type keyCache struct {
	mu         sync.Mutex
	jwksURL    string
	httpClient *http.Client

	keys       map[string]*rsa.PublicKey
	fetchedAt  time.Time
}

func newKeyCache(jwksURL string, httpClient *http.Client) *keyCache {
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}
	return &keyCache{jwksURL: jwksURL, httpClient: httpClient}
}

// lookup returns the RSA public key for kid, refreshing the cache if it's
// stale or the kid is unknown. A fetch failure on an empty (cold-start)
// cache is returned to the caller; a fetch failure refreshing an
// already-populated cache falls back to the stale keys rather than
// failing every in-flight verification.
func (c *keyCache) lookup(kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key, ok := c.keys[kid]; ok && time.Since(c.fetchedAt) < keyCacheTTL {
		return key, nil
	}

	fresh, err := fetchJWKS(c.httpClient, c.jwksURL)
	if err != nil {
		if c.keys != nil {
			if key, ok := c.keys[kid]; ok {
				return key, nil
			}
		}
		return nil, err
	}

	c.keys = fresh
	c.fetchedAt = time.Now()

	key, ok := c.keys[kid]
	if !ok {
		return nil, errUnknownKid(kid)
	}
	return key, nil
}
