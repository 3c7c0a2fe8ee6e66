package whop

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/communityvault/backend/internal/platform/ctxutil"
	"github.com/communityvault/backend/internal/platform/envutil"
	"github.com/communityvault/backend/internal/platform/logger"
)

type User struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	AvatarURL string   `json:"profile_pic_url"`
	Roles     []string `json:"roles"`
	Type      string   `json:"type"`
}

type CheckoutParams struct {
	AmountCents int64
	Currency    string
	Title       string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Client interface {
	// VerifyUserToken validates the signed user token Whop embeds in
	// iframe requests and returns the Whop user id.
	VerifyUserToken(tokenString string) (string, error)

	GetUser(ctx context.Context, whopUserID string) (*User, error)

	// BuildCheckoutSession assembles a hosted-checkout URL carrying
	// the price and the metadata the webhook needs to settle the sale.
	BuildCheckoutSession(params CheckoutParams) (*CheckoutSession, error)

	// VerifyWebhookSignature checks the hex HMAC-SHA256 signature
	// Whop sends over the raw webhook body.
	VerifyWebhookSignature(payload []byte, signature string) bool
}

type Config struct {
	APIKey        string
	AppID         string
	WebhookSecret string
	JWTPublicKey  string
	BaseURL       string
	CheckoutURL   string
	Timeout       time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:        envutil.Str("WHOP_API_KEY", ""),
		AppID:         envutil.Str("WHOP_APP_ID", ""),
		WebhookSecret: envutil.Str("WHOP_WEBHOOK_SECRET", ""),
		JWTPublicKey:  envutil.Str("WHOP_JWT_PUBLIC_KEY", ""),
		BaseURL:       envutil.Str("WHOP_BASE_URL", "https://api.whop.com"),
		CheckoutURL:   envutil.Str("WHOP_CHECKOUT_URL", "https://whop.com/checkout"),
		Timeout:       time.Duration(envutil.Int("WHOP_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

type client struct {
	log       *logger.Logger
	cfg       Config
	publicKey *ecdsa.PublicKey
	http      *http.Client
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing WHOP_API_KEY")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("missing WHOP_WEBHOOK_SECRET")
	}
	if strings.TrimSpace(cfg.JWTPublicKey) == "" {
		return nil, fmt.Errorf("missing WHOP_JWT_PUBLIC_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.whop.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if strings.TrimSpace(cfg.CheckoutURL) == "" {
		cfg.CheckoutURL = "https://whop.com/checkout"
	}
	cfg.CheckoutURL = strings.TrimRight(strings.TrimSpace(cfg.CheckoutURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	pub, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
	if err != nil {
		return nil, fmt.Errorf("whop: parse jwt public key: %w", err)
	}

	return &client{
		log:       log.With("client", "WhopClient"),
		cfg:       cfg,
		publicKey: pub,
		http:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *client) VerifyUserToken(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", fmt.Errorf("whop: empty user token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if strings.TrimSpace(c.cfg.AppID) != "" {
		opts = append(opts, jwt.WithAudience(c.cfg.AppID))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return c.publicKey, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("whop: invalid user token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("whop: user token missing subject")
	}
	return strings.TrimSpace(sub), nil
}

func (c *client) GetUser(ctx context.Context, whopUserID string) (*User, error) {
	whopUserID = strings.TrimSpace(whopUserID)
	if whopUserID == "" {
		return nil, fmt.Errorf("whop: user id required")
	}
	return doJSON[User](c, ctx, "GET", "/api/v5/app/users/"+whopUserID, nil)
}

func (c *client) BuildCheckoutSession(params CheckoutParams) (*CheckoutSession, error) {
	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("whop: positive amount required")
	}

	meta, err := json.Marshal(params.Metadata)
	if err != nil {
		return nil, fmt.Errorf("whop: encode checkout metadata: %w", err)
	}

	q := url.Values{}
	q.Set("amount", strconv.FormatInt(params.AmountCents, 10))
	q.Set("currency", params.Currency)
	q.Set("title", params.Title)
	if strings.TrimSpace(params.Description) != "" {
		q.Set("description", params.Description)
	}
	if strings.TrimSpace(params.SuccessURL) != "" {
		q.Set("success_url", params.SuccessURL)
	}
	if strings.TrimSpace(params.CancelURL) != "" {
		q.Set("cancel_url", params.CancelURL)
	}
	q.Set("metadata", string(meta))

	return &CheckoutSession{
		ID:  fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), params.Metadata["fileId"]),
		URL: c.cfg.CheckoutURL + "?" + q.Encode(),
	}, nil
}

func (c *client) VerifyWebhookSignature(payload []byte, signature string) bool {
	signature = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// -------------------- helpers --------------------

func doJSON[T any](c *client, ctx context.Context, method, path string, body any) (*T, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("whop http %d: %s", resp.StatusCode, string(raw))
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("whop decode error: %w; raw=%s", err, string(raw))
	}
	return &out, nil
}
