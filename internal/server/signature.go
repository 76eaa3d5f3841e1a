package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/matrixise/xpr-wallet/internal/config"
)

// Environment variables holding the payment provider credentials.
const (
	MetalPayAPIKeyEnv    = "METALPAY_API_KEY"
	MetalPaySecretKeyEnv = "METALPAY_SECRET_KEY"
)

// Credentials are the payment provider API key and secret. They are only
// read from the environment and never written anywhere.
type Credentials struct {
	APIKey    string
	SecretKey string
}

// CredentialsFromEnv reads the credentials from the process environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:    config.EnvSecret(MetalPayAPIKeyEnv),
		SecretKey: config.EnvSecret(MetalPaySecretKeyEnv),
	}
}

func (c Credentials) configured() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// SignatureResponse is the body of a successful signature request.
type SignatureResponse struct {
	APIKey    string `json:"apiKey"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
}

// Sign returns the hex HMAC-SHA256 of nonce followed by apiKey, keyed with
// the secret.
func Sign(secret, nonce, apiKey string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce + apiKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHandler serves fresh payment widget signatures. The nonce is the
// current time in unix milliseconds.
type SignatureHandler struct {
	creds Credentials
	now   func() time.Time
}

// NewSignatureHandler creates a handler signing with creds.
func NewSignatureHandler(creds Credentials) *SignatureHandler {
	return &SignatureHandler{creds: creds, now: time.Now}
}

// WithClock replaces the clock used for nonces.
func (h *SignatureHandler) WithClock(now func() time.Time) *SignatureHandler {
	h.now = now
	return h
}

func (h *SignatureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !h.creds.configured() {
		writeError(w, http.StatusInternalServerError, "Metal Pay credentials not configured")
		return
	}

	nonce := strconv.FormatInt(h.now().UnixMilli(), 10)

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", http.MethodGet)
	writeJSON(w, http.StatusOK, SignatureResponse{
		APIKey:    h.creds.APIKey,
		Signature: Sign(h.creds.SecretKey, nonce, h.creds.APIKey),
		Nonce:     nonce,
	})
}
