package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/config"
)

func testConfig(baseURL string) config.MpesaConfig {
	return config.MpesaConfig{
		BaseURL:        baseURL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/v1/payments/mpesa/callback",
		Timeout:        5 * time.Second,
	}
}

func TestAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/oauth/v1/generate", r.URL.Path)
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	token, err := c.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}

func TestAccessTokenBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	_, err := c.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestSTKPushPayload(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	var got stkPushRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
		case "/mpesa/stkpush/v1/processrequest":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(map[string]string{
				"CheckoutRequestID": "ws_CO_123",
				"ResponseCode":      "0",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	c.now = func() time.Time { return fixed }

	checkoutID, err := c.STKPush(context.Background(), "+254700111222", 5000,
		"LEASE7-A-VERY-LONG-REFERENCE", strings.Repeat("Rent for March ", 4))
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_123", checkoutID)

	assert.Equal(t, "174379", got.BusinessShortCode)
	assert.Equal(t, "20260314150926", got.Timestamp)
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + "20260314150926"))
	assert.Equal(t, wantPassword, got.Password)
	assert.Equal(t, "CustomerPayBillOnline", got.TransactionType)
	assert.Equal(t, int64(5000), got.Amount)
	assert.Equal(t, "+254700111222", got.PhoneNumber)
	assert.Equal(t, "https://example.com/v1/payments/mpesa/callback", got.CallBackURL)

	// Daraja field limits.
	assert.Len(t, got.AccountReference, 12)
	assert.Equal(t, "LEASE7-A-VER", got.AccountReference)
	assert.Len(t, got.TransactionDesc, 30)
}

func TestSTKPushNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
			return
		}
		http.Error(w, `{"errorMessage":"Invalid Amount"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	_, err := c.STKPush(context.Background(), "+254700111222", 0, "LEASE7", "Rent")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestSTKPushTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	c := NewClient(cfg, zap.NewNop())

	_, err := c.STKPush(context.Background(), "+254700111222", 100, "LEASE7", "Rent")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestSTKPushAuthFailureSurfacesAsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	_, err := c.STKPush(context.Background(), "+254700111222", 100, "LEASE7", "Rent")
	assert.ErrorIs(t, err, ErrAuth)
}
