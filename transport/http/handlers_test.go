package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensgate/ensgate/adapters/store"
	"github.com/ensgate/ensgate/adapters/tokenizer"
	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/internal/eth"
	"github.com/ensgate/ensgate/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeResolver pins every lookup to a single fixture owner
type fakeResolver struct {
	owner common.Address
}

func (f *fakeResolver) ResolverAddress(ctx context.Context, name string) (common.Address, error) {
	return common.HexToAddress("0x2222222222222222222222222222222222222222"), nil
}

func (f *fakeResolver) ResolveOwner(ctx context.Context, name string) (common.Address, error) {
	return f.owner, nil
}

func (f *fakeResolver) ResolveAddr(ctx context.Context, name string) (common.Address, error) {
	return common.Address{}, nil
}

func (f *fakeResolver) ReverseResolve(ctx context.Context, addr common.Address) (string, error) {
	return "", nil
}

func newTestRouter(t *testing.T, resolver *fakeResolver) *gin.Engine {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	nonces := store.NewMemoryNonceStore(core.ChallengeTTL)
	t.Cleanup(nonces.Close)

	svc := service.NewAuthService(
		nonces,
		store.NewMemoryUserStore(),
		resolver,
		nil,
		tokenizer.NewJWTTokenizer(signKey),
		nil,
	)
	return SetupRouter(svc)
}

func getJSON(t *testing.T, router *gin.Engine, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func fetchNonce(t *testing.T, router *gin.Engine) (nonce, timestamp string) {
	t.Helper()
	code, body := getJSON(t, router, "/api/auth/nonce", "")
	require.Equal(t, http.StatusOK, code)

	nonce, _ = body["nonce"].(string)
	timestamp, _ = body["timestamp"].(string)
	require.True(t, core.IsCanonicalNonce(nonce))
	require.NotEmpty(t, timestamp)
	return nonce, timestamp
}

func loginPayload(t *testing.T, key *ecdsa.PrivateKey, name, nonce, timestamp string) map[string]string {
	t.Helper()
	msg := core.LoginMessage(core.NormalizeName(name), nonce, timestamp)
	sig, err := eth.SignText(msg, key)
	require.NoError(t, err)

	return map[string]string{
		"ensName":   name,
		"signature": sig,
		"nonce":     nonce,
		"timestamp": timestamp,
	}
}

func TestNonceEndpointIssuesFreshValues(t *testing.T) {
	router := newTestRouter(t, &fakeResolver{})

	a, _ := fetchNonce(t, router)
	b, _ := fetchNonce(t, router)
	assert.NotEqual(t, a, b)
}

func TestLoginEndToEnd(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	addr := gethcrypto.PubkeyToAddress(key.PublicKey)

	router := newTestRouter(t, &fakeResolver{owner: addr})

	nonce, ts := fetchNonce(t, router)
	code, body := postJSON(t, router, "/api/auth/ens-login", loginPayload(t, key, "alice.eth", nonce, ts))
	require.Equal(t, http.StatusOK, code, "body: %v", body)

	assert.Equal(t, true, body["success"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice.eth", user["ensName"])
	assert.Equal(t, addr.Hex(), user["address"])

	// The issued credential passes verification
	code, body = getJSON(t, router, "/api/auth/verify", token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["valid"])
	verified, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice.eth", verified["ensName"])

	// And grants access to the protected group
	code, _ = getJSON(t, router, "/api/me", token)
	assert.Equal(t, http.StatusOK, code)
}

func TestLoginReplayRejected(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	addr := gethcrypto.PubkeyToAddress(key.PublicKey)

	router := newTestRouter(t, &fakeResolver{owner: addr})

	nonce, ts := fetchNonce(t, router)
	payload := loginPayload(t, key, "alice.eth", nonce, ts)

	code, _ := postJSON(t, router, "/api/auth/ens-login", payload)
	require.Equal(t, http.StatusOK, code)

	code, body := postJSON(t, router, "/api/auth/ens-login", payload)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "nonce")
}

func TestLoginNonOwnerRejected(t *testing.T) {
	signerKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	ownerKey, err := gethcrypto.GenerateKey()
	require.NoError(t, err)

	router := newTestRouter(t, &fakeResolver{owner: gethcrypto.PubkeyToAddress(ownerKey.PublicKey)})

	nonce, ts := fetchNonce(t, router)
	code, body := postJSON(t, router, "/api/auth/ens-login", loginPayload(t, signerKey, "alice.eth", nonce, ts))

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body["error"], "not")
}

func TestLoginMissingFields(t *testing.T) {
	router := newTestRouter(t, &fakeResolver{})

	code, body := postJSON(t, router, "/api/auth/ens-login", map[string]string{"ensName": "alice.eth"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["error"])
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	router := newTestRouter(t, &fakeResolver{})

	code, _ := getJSON(t, router, "/api/auth/verify", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = getJSON(t, router, "/api/auth/verify", "tampered.token.here")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = getJSON(t, router, "/api/me", "tampered.token.here")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &fakeResolver{})

	code, body := getJSON(t, router, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
