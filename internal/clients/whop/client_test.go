package whop

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/communityvault/backend/internal/platform/logger"
)

func newTestClient(t *testing.T) (Client, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	c, err := New(log, Config{
		APIKey:        "test-api-key",
		AppID:         "app_test",
		WebhookSecret: "whsec_test",
		JWTPublicKey:  string(pubPEM),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, key
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyUserToken(t *testing.T) {
	c, key := newTestClient(t)

	signed := signToken(t, key, jwt.MapClaims{
		"sub": "user_123",
		"aud": "app_test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	userID, err := c.VerifyUserToken(signed)
	if err != nil {
		t.Fatalf("VerifyUserToken: %v", err)
	}
	if userID != "user_123" {
		t.Fatalf("expected user_123, got %q", userID)
	}
}

func TestVerifyUserTokenRejectsExpired(t *testing.T) {
	c, key := newTestClient(t)

	signed := signToken(t, key, jwt.MapClaims{
		"sub": "user_123",
		"aud": "app_test",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := c.VerifyUserToken(signed); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyUserTokenRejectsWrongAudience(t *testing.T) {
	c, key := newTestClient(t)

	signed := signToken(t, key, jwt.MapClaims{
		"sub": "user_123",
		"aud": "app_other",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := c.VerifyUserToken(signed); err == nil {
		t.Fatalf("expected wrong-audience token to be rejected")
	}
}

func TestVerifyUserTokenRejectsWrongKey(t *testing.T) {
	c, _ := newTestClient(t)

	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signed := signToken(t, otherKey, jwt.MapClaims{
		"sub": "user_123",
		"aud": "app_test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := c.VerifyUserToken(signed); err == nil {
		t.Fatalf("expected token signed with a different key to be rejected")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	c, _ := newTestClient(t)

	payload := []byte(`{"action":"payment.succeeded","data":{"id":"pay_1"}}`)
	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(payload)
	sig := hex.EncodeToString(mac.Sum(nil))

	if !c.VerifyWebhookSignature(payload, sig) {
		t.Fatalf("expected valid signature to verify")
	}
	if !c.VerifyWebhookSignature(payload, "sha256="+sig) {
		t.Fatalf("expected sha256= prefixed signature to verify")
	}
	if c.VerifyWebhookSignature(payload, sig[:len(sig)-2]+"00") {
		t.Fatalf("expected tampered signature to fail")
	}
	if c.VerifyWebhookSignature([]byte(`{"action":"other"}`), sig) {
		t.Fatalf("expected signature over different payload to fail")
	}
}

func TestBuildCheckoutSession(t *testing.T) {
	c, _ := newTestClient(t)

	session, err := c.BuildCheckoutSession(CheckoutParams{
		AmountCents: 2500,
		Currency:    "usd",
		Title:       "Advanced Lighting Guide",
		Description: "Premium download",
		SuccessURL:  "https://app.example.com/dashboard?checkout=success&fileId=file_1",
		CancelURL:   "https://app.example.com/dashboard",
		Metadata:    map[string]string{"fileId": "file_1", "purchaserId": "user_2"},
	})
	if err != nil {
		t.Fatalf("BuildCheckoutSession: %v", err)
	}

	u, err := url.Parse(session.URL)
	if err != nil {
		t.Fatalf("parse checkout url: %v", err)
	}
	q := u.Query()
	if q.Get("amount") != "2500" {
		t.Fatalf("expected amount 2500, got %q", q.Get("amount"))
	}
	if q.Get("currency") != "usd" {
		t.Fatalf("expected currency usd, got %q", q.Get("currency"))
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(q.Get("metadata")), &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta["fileId"] != "file_1" || meta["purchaserId"] != "user_2" {
		t.Fatalf("unexpected metadata: %v", meta)
	}

	if !strings.HasPrefix(session.ID, "session_") || !strings.HasSuffix(session.ID, "_file_1") {
		t.Fatalf("unexpected session id %q", session.ID)
	}

	if _, err := c.BuildCheckoutSession(CheckoutParams{AmountCents: 0}); err == nil {
		t.Fatalf("expected zero amount to be rejected")
	}
}
