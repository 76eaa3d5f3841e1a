package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.UnixMilli(1700000000000)
}

func TestSign(t *testing.T) {
	assert.Equal(t,
		"437fa385bfe4ec013b81215b71f904dd22d5d13062b11eb7a8c8be0acdcab428",
		Sign("secret", "1700000000000", "key"))
}

func TestSignatureHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		creds      Credentials
		wantStatus int
		wantError  string
	}{
		{
			name:       "method not allowed",
			method:     http.MethodPost,
			creds:      Credentials{APIKey: "key", SecretKey: "secret"},
			wantStatus: http.StatusMethodNotAllowed,
			wantError:  "Method not allowed",
		},
		{
			name:       "missing secret",
			method:     http.MethodGet,
			creds:      Credentials{APIKey: "key"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Metal Pay credentials not configured",
		},
		{
			name:       "missing api key",
			method:     http.MethodGet,
			creds:      Credentials{SecretKey: "secret"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Metal Pay credentials not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSignatureHandler(tt.creds).WithClock(fixedClock)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/metalpay-signature", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	t.Run("signs nonce and api key", func(t *testing.T) {
		h := NewSignatureHandler(Credentials{APIKey: "key", SecretKey: "secret"}).WithClock(fixedClock)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metalpay-signature", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp SignatureResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "key", resp.APIKey)
		assert.Equal(t, "1700000000000", resp.Nonce)
		assert.Equal(t, "437fa385bfe4ec013b81215b71f904dd22d5d13062b11eb7a8c8be0acdcab428", resp.Signature)
	})

	t.Run("nonce follows the clock", func(t *testing.T) {
		now := fixedClock()
		h := NewSignatureHandler(Credentials{APIKey: "key", SecretKey: "secret"}).
			WithClock(func() time.Time { return now })

		var nonces []string
		for range 2 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			var resp SignatureResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			nonces = append(nonces, resp.Nonce)
			now = now.Add(time.Millisecond)
		}
		assert.Equal(t, []string{"1700000000000", "1700000000001"}, nonces)
	})
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(MetalPayAPIKeyEnv, "k")
	t.Setenv(MetalPaySecretKeyEnv, "s")
	assert.Equal(t, Credentials{APIKey: "k", SecretKey: "s"}, CredentialsFromEnv())
}
