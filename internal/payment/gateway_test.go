package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotAuth, gotIdem string
	var gotBody CreateSession

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(CheckoutSession{
			ID:            "cs_test_1",
			URL:           "https://gateway.example/pay/cs_test_1",
			PaymentStatus: StatusUnpaid,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_key")
	session, err := client.CreateCheckoutSession(context.Background(), CreateSession{
		LineItem:   LineItem{Currency: "czk", UnitAmount: 950, Quantity: 1},
		Mode:       "payment",
		SuccessURL: "https://shop.example/success",
		Metadata:   map[string]string{"order_id": "7"},
	})
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", session.ID)
	require.Equal(t, "https://gateway.example/pay/cs_test_1", session.URL)
	require.False(t, session.Paid())

	require.Equal(t, "Bearer sk_test_key", gotAuth)
	require.NotEmpty(t, gotIdem)
	require.Equal(t, "7", gotBody.Metadata["order_id"])
	require.EqualValues(t, 950, gotBody.LineItem.UnitAmount)
}

func TestCreateCheckoutSessionGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"card_declined"}`, http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_key")
	_, err := client.CreateCheckoutSession(context.Background(), CreateSession{})
	require.ErrorIs(t, err, ErrGateway)
}

func TestGetCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		json.NewEncoder(w).Encode(CheckoutSession{
			ID:            "cs_test_1",
			PaymentStatus: StatusPaid,
			PaymentIntent: "pi_1",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_key")
	session, err := client.GetCheckoutSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	require.True(t, session.Paid())
	require.Equal(t, "pi_1", session.PaymentIntent)
}

func TestGetCheckoutSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_key")
	_, err := client.GetCheckoutSession(context.Background(), "cs_missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
