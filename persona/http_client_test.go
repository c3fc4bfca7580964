package persona

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexa-labs/ragserve/types"
)

func TestClientGetIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenants/acme/identity", r.URL.Path)
		json.NewEncoder(w).Encode(Identity{
			DisplayName:    "Acme Assistant",
			ForbiddenTerms: []string{"cheap"},
			Friendliness:   90,
			Formality:      30,
			Verbosity:      50,
			Humor:          10,
			TechnicalLevel: 40,
		})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	identity, err := client.GetIdentity(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Assistant", identity.DisplayName)
	assert.Equal(t, "acme", identity.TenantID)
	assert.Equal(t, []string{"cheap"}, identity.ForbiddenTerms)
}

func TestClientGetIdentityNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.GetIdentity(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestClientGetIdentityInvalidSliders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Identity{DisplayName: "Acme", Friendliness: 200})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.GetIdentity(context.Background(), "acme")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidTenantData, types.GetErrorCode(err))
}

func TestClientGetIdentityServiceDown(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := client.GetIdentity(context.Background(), "acme")
	require.Error(t, err)
	assert.Equal(t, types.ErrInternalError, types.GetErrorCode(err))
}
