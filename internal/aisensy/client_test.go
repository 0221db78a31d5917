package aisensy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	var got campaignRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":"true"}`))
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL, APIKey: "key", CampaignName: "zippee_order_status_update", Client: srv.Client()}
	res, err := c.Send(context.Background(), Notification{
		Destination:    "+919876543210",
		UserName:       "Asha",
		TemplateParams: []string{"Asha", "Z100", "has been delivered"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"success":"true"}`, string(res.Body))

	assert.Equal(t, "key", got.APIKey)
	assert.Equal(t, "zippee_order_status_update", got.CampaignName)
	assert.Equal(t, "+919876543210", got.Destination)
	assert.Equal(t, "Asha", got.UserName)
	assert.Equal(t, []string{"Asha", "Z100", "has been delivered"}, got.TemplateParams)
}

func TestClientSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL, APIKey: "bad", Client: srv.Client()}
	res, err := c.Send(context.Background(), Notification{Destination: "+919876543210"})
	require.Error(t, err)
	assert.Nil(t, res)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, map[string]any{"message": "Invalid API key"}, Details(err))
}

func TestClientSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := &Client{Endpoint: srv.URL}
	_, err := c.Send(context.Background(), Notification{Destination: "+919876543210"})
	require.Error(t, err)

	var pe *ProviderError
	assert.False(t, errors.As(err, &pe))
	assert.Equal(t, err.Error(), Details(err))
}

func TestDetails(t *testing.T) {
	assert.Nil(t, Details(nil))
	assert.Equal(t, "gateway down", Details(&ProviderError{StatusCode: 502, Body: []byte("gateway down")}))
	assert.Equal(t, "aisensy API error (status 503): ", Details(&ProviderError{StatusCode: 503}))
}
