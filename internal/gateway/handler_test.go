package gateway_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/voice-gateway/internal/gateway"
	"github.com/AltairaLabs/voice-gateway/internal/identity"
	"github.com/AltairaLabs/voice-gateway/internal/toolcoordinator"
	"github.com/AltairaLabs/voice-gateway/internal/toolregistry"
)

const testKid = "gw-test-key"
const testIssuer = "https://issuer.example.com"
const testAudience = "client-abc"

func mustRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func jwksServer(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	n := base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString([]byte{1, 0, 1})
	body := map[string]any{
		"keys": []map[string]string{
			{"kty": "RSA", "kid": testKid, "use": "sig", "alg": "RS256", "n": n, "e": e},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":      testIssuer,
		"aud":      testAudience,
		"sub":      subject,
		"username": "ada",
		"name":     "Ada Lovelace",
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

type testGateway struct {
	server  *httptest.Server
	wsURL   string
	key     *rsa.PrivateKey
	model   *fakeModelTransport
	sup     *gateway.Supervisor
}

func newTestGateway(t *testing.T, opts ...gateway.HandlerOption) *testGateway {
	t.Helper()
	key := mustRSAKey(t)
	jwks := jwksServer(t, key)
	verifier := identity.NewVerifier(testIssuer, testAudience, jwks.URL, nil)

	reg := toolregistry.New()
	require.NoError(t, toolregistry.RegisterDateTime(reg, func() time.Time { return time.Unix(0, 0) }))
	coordinator := toolcoordinator.New(reg, slog.Default())

	model := newFakeModelTransport()
	sup := gateway.NewSupervisor(gateway.WithMaxConcurrentSessions(1), gateway.WithIdleTimeout(0))

	handler := gateway.NewConnectionHandler(verifier, reg, coordinator, fakeDialer(model), sup, slog.Default(), opts...)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return &testGateway{server: srv, wsURL: wsURL, key: key, model: model, sup: sup}
}

func (g *testGateway) dial(t *testing.T, token string) *gorillaws.Conn {
	t.Helper()
	url := fmt.Sprintf("%s?idToken=%s", g.wsURL, token)
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *gorillaws.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestConnectionHandler_ValidTokenReceivesWelcome(t *testing.T) {
	g := newTestGateway(t)
	token := signToken(t, g.key, "user-1")

	conn := g.dial(t, token)
	defer conn.Close()

	welcome := readFrame(t, conn)
	assert.Equal(t, "welcome", welcome["type"])
	assert.Equal(t, "user-1", welcome["userId"])
	assert.Equal(t, "Ada Lovelace", welcome["displayName"])
}

func TestConnectionHandler_InvalidTokenClosesWithCode1008(t *testing.T) {
	g := newTestGateway(t)

	conn := g.dial(t, "not-a-real-token")
	defer conn.Close()

	// The handler frames an error first, then closes with 1008.
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])

	_, _, err := conn.ReadMessage()
	var closeErr *gorillaws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, 1008, closeErr.Code)
}

func TestConnectionHandler_StartSessionDrivesModelAndAcksClient(t *testing.T) {
	g := newTestGateway(t)
	token := signToken(t, g.key, "user-2")

	conn := g.dial(t, token)
	defer conn.Close()
	_ = readFrame(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "startSession"}))

	started := readFrame(t, conn)
	assert.Equal(t, "sessionStarted", started["type"])
	ready := readFrame(t, conn)
	assert.Equal(t, "sessionReady", ready["type"])

	assert.Eventually(t, func() bool {
		return len(g.model.writtenFrames()) >= 3
	}, time.Second, 5*time.Millisecond, "model should have received sessionStart/promptStart/system-prompt frames")
}

func TestConnectionHandler_RejectsBeyondMaxConcurrentSessions(t *testing.T) {
	g := newTestGateway(t) // sup built with WithMaxConcurrentSessions(1)

	firstToken := signToken(t, g.key, "user-a")
	first := g.dial(t, firstToken)
	defer first.Close()
	_ = readFrame(t, first) // welcome, holds the one slot

	secondToken := signToken(t, g.key, "user-b")
	second := g.dial(t, secondToken)
	defer second.Close()

	_, data, err := second.ReadMessage()
	if err != nil {
		var closeErr *gorillaws.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, 1008, closeErr.Code)
		return
	}
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "error", frame["type"])
}

func TestConnectionHandler_ModelTextOutputForwardedToClient(t *testing.T) {
	g := newTestGateway(t)
	token := signToken(t, g.key, "user-3")

	conn := g.dial(t, token)
	defer conn.Close()
	_ = readFrame(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "startSession"}))
	_ = readFrame(t, conn) // sessionStarted
	_ = readFrame(t, conn) // sessionReady

	g.model.pushInbound([]byte(`{"event":"textOutput","contentId":"c1","text":"hello there"}`))

	text := readFrame(t, conn)
	assert.Equal(t, "textOutput", text["type"])
	assert.Equal(t, "hello there", text["text"])
}

// countFrameKinds tallies each outbound frame's "event" discriminator
// across the raw JSON the fake model transport recorded.
func countFrameKinds(t *testing.T, frames []json.RawMessage) map[string]int {
	t.Helper()
	counts := make(map[string]int)
	for _, raw := range frames {
		var env struct {
			Event string `json:"event"`
		}
		require.NoError(t, json.Unmarshal(raw, &env))
		counts[env.Event]++
	}
	return counts
}

// TestConnectionHandler_BargeInReopensAudioWithoutNewTurn drives testable
// property 5 / scenario E4 (barge-in) end to end through the client
// connection handler: after a turn's audio is stopped, a second
// audioStart frame from the client must reopen the microphone path
// directly from AudioClosed, with no intervening startSession frame and,
// critically, without the handler re-driving StartNewTurn (which would
// re-emit a promptStart to the model). A single audioData frame sent
// right after must also be accepted rather than rejected.
func TestConnectionHandler_BargeInReopensAudioWithoutNewTurn(t *testing.T) {
	g := newTestGateway(t)
	token := signToken(t, g.key, "user-5")

	conn := g.dial(t, token)
	defer conn.Close()
	_ = readFrame(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "startSession"}))
	_ = readFrame(t, conn) // sessionStarted
	_ = readFrame(t, conn) // sessionReady

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audioStart"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audioData", "audio": "AAAA"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audioStop"}))

	assert.Eventually(t, func() bool {
		// One contentEnd closes the system prompt; the second closes the audio.
		return countFrameKinds(t, g.model.writtenFrames())["contentEnd"] >= 2
	}, time.Second, 5*time.Millisecond, "first turn's audio content-end should reach the model")

	// Barge-in: a second audioStart with no intervening startSession.
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audioStart"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audioData", "audio": "BBBB"}))

	assert.Eventually(t, func() bool {
		// The first turn's audioData is the first audioInput; this is the second.
		return countFrameKinds(t, g.model.writtenFrames())["audioInput"] >= 2
	}, time.Second, 5*time.Millisecond, "barge-in audioData should be accepted and reach the model")

	counts := countFrameKinds(t, g.model.writtenFrames())
	assert.Equal(t, 1, counts["promptStart"], "barge-in must not re-drive StartNewTurn (no second promptStart)")
	// The system prompt's content-start plus one per audio segment.
	assert.GreaterOrEqual(t, counts["contentStart"], 3, "both the first and the re-opened audio segment get a content-start")
}

func TestConnectionHandler_ClientDisconnectTearsDownSession(t *testing.T) {
	g := newTestGateway(t)
	token := signToken(t, g.key, "user-4")

	conn := g.dial(t, token)
	_ = readFrame(t, conn) // welcome
	conn.Close()

	assert.Eventually(t, func() bool {
		return g.sup.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond, "session should be unregistered after client disconnect")
}
