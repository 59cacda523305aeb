package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook payload.
const SignatureHeader = "X-Gateway-Signature"

// EventCheckoutCompleted is the authoritative payment confirmation event.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	ErrBadSignature = errors.New("invalid webhook signature")
	ErrBadPayload   = errors.New("invalid webhook payload")
)

type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

// Sign computes the signature the gateway attaches to a payload. Exported
// for tests and for local webhook replay tooling.
func Sign(secret []byte, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ConstructEvent verifies the signature over the raw payload before
// decoding anything. The signature check uses the shared webhook secret,
// never data from the request itself.
func ConstructEvent(payload []byte, signature string, secret []byte) (*Event, error) {
	expected := Sign(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrBadSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if event.Type == "" {
		return nil, ErrBadPayload
	}
	return &event, nil
}
