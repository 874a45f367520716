package identity

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AltairaLabs/voice-gateway/internal/gwerrors"
	"github.com/AltairaLabs/voice-gateway/internal/session"
)

// Claims is the decoded shape of the identity token (§6 Identity issuer).
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Verifier validates an identity token's signature, issuer, and audience
// against a cached JWKS (§4.7 point 2).
type Verifier struct {
	issuer   string
	audience string
	keys     *keyCache
}

// NewVerifier builds a Verifier for tokens issued by issuerURL (e.g. a
// Cognito user pool's issuer), scoped to audience (the app client id).
// jwksURL defaults to issuerURL + "/.well-known/jwks.json" when empty.
func NewVerifier(issuerURL, audience, jwksURL string, httpClient *http.Client) *Verifier {
	if jwksURL == "" {
		jwksURL = issuerURL + "/.well-known/jwks.json"
	}
	return &Verifier{issuer: issuerURL, audience: audience, keys: newKeyCache(jwksURL, httpClient)}
}

func errUnknownKid(kid string) error {
	return fmt.Errorf("identity: no key for kid %q", kid)
}

// Verify parses and validates tokenString, returning the caller's decoded
// identity on success. A JWKS fetch error on a cold cache, an unknown
// kid, a bad signature, or a mismatched iss/aud claim are all terminal
// failures — the connection has no valid identity and must be rejected
// with code 1008 (§4.7 point 2).
func (v *Verifier) Verify(tokenString string) (session.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("identity: unexpected signing method %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("identity: token missing kid header")
		}
		return v.keys.lookup(kid)
	},
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	)
	if err != nil {
		return session.Identity{}, gwerrors.New(gwerrors.KindAuth, "identity", "verify", err).WithStatusCode(1008)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return session.Identity{}, gwerrors.New(gwerrors.KindAuth, "identity", "verify", nil).
			WithStatusCode(1008).
			WithDetails(map[string]any{"reason": "missing subject claim"})
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = claims.Username
	}

	return session.Identity{
		UserID:      claims.Subject,
		DisplayName: displayName,
		Claims: map[string]any{
			"sub":      claims.Subject,
			"username": claims.Username,
			"email":    claims.Email,
		},
	}, nil
}
