package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purefi/playground-sdk-go/types"
)

func TestSignerClient_Sign(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var typed map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&typed))
		if typed["primaryType"] != "Data" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"unsupported primary type"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(testSignedPayload())
	}))
	defer server.Close()

	c, err := NewSignerClient(&Config{Retry: NoRetry()})
	require.NoError(t, err)
	ctx := context.Background()

	signed, err := c.Sign(ctx, server.URL, map[string]interface{}{"primaryType": "Data"})
	require.NoError(t, err)
	assert.Equal(t, "0xsig", signed.Signature)
	assert.Equal(t, "431050", signed.Message.Payload.RuleID)

	_, err = c.Sign(ctx, server.URL, map[string]interface{}{"primaryType": "Other"})
	serr, ok := types.IsRemoteSigningError(err)
	require.True(t, ok)
	assert.Equal(t, "unsupported primary type", serr.Message)

	_, err = c.Sign(ctx, "", nil)
	_, ok = types.IsRemoteSigningError(err)
	assert.True(t, ok)
}

func TestSignerClient_MissingSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{}}`))
	}))
	defer server.Close()

	c, err := NewSignerClient(&Config{Retry: NoRetry()})
	require.NoError(t, err)

	_, err = c.Sign(context.Background(), server.URL, map[string]interface{}{})
	_, ok := types.IsRemoteSigningError(err)
	assert.True(t, ok)
}
