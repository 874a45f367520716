// Package identity verifies the client-facing identity token against the
// configured issuer's JSON Web Key Set (§6 "Identity issuer", §4.7 point
// 2). There is no JWKS-client library anywhere in the example corpus (the
// one JWT user in the pack, haasonsaas-nexus's internal/auth, verifies a
// locally-signed HMAC token, not a remote RSA key set) so the fetch/cache
// mechanics here are built directly on net/http and golang-jwt/jwt/v5's
// own RSA key type, rather than grounded on a pack example — recorded as
// a justified stdlib-glue exception in DESIGN.md.
package identity

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"
)

// jwk is one entry of a JSON Web Key Set response.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

// fetchJWKS retrieves and parses the RSA public keys published at url,
// keyed by kid.
func fetchJWKS(client *http.Client, url string) (map[string]*rsa.PublicKey, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("identity: fetching JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: JWKS endpoint returned status %d", resp.StatusCode)
	}

	var parsed jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("identity: decoding JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(parsed.Keys))
	for _, k := range parsed.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaPublicKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("identity: JWKS response contained no usable RSA keys")
	}
	return keys, nil
}

func rsaPublicKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("identity: decoding modulus for kid %q: %w", k.Kid, err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("identity: decoding exponent for kid %q: %w", k.Kid, err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// defaultHTTPClient is used when a Verifier is built without an explicit
// client override.
var defaultHTTPClient = &http.Client{Timeout: 10 * time.Second}
