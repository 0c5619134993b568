package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/contactalia/contactalia-backend/pkg/config"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{}, nil)
	if !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
}

func TestNewClientRejectsKeyForWrongMode(t *testing.T) {
	cases := []config.StripeConfig{
		{SecretKey: "sk_live_123", Env: "test"},
		{SecretKey: "rk_test_123", Env: "live"},
		{SecretKey: "sk_test_123", Env: "staging"},
		{SecretKey: "pk_test_123"},
	}
	for _, cfg := range cases {
		if _, err := NewClient(context.Background(), cfg, nil); err == nil {
			t.Fatalf("expected %q in %q mode to be rejected", cfg.SecretKey, cfg.Env)
		}
	}
}

func TestNewClientAcceptsRestrictedKeys(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{SecretKey: " rk_test_abc "}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Environment() != "test" || !client.restricted {
		t.Fatalf("unexpected client state %+v", client)
	}
}

func TestNilClientEnvironment(t *testing.T) {
	var c *Client
	if c.Environment() != "" {
		t.Fatal("nil client should report no environment")
	}
}

func TestCreateCheckoutSessionNeedsParams(t *testing.T) {
	c := &Client{mode: "test"}
	if _, err := c.CreateCheckoutSession(context.Background(), nil); !errors.Is(err, errParamsRequired) {
		t.Fatalf("expected errParamsRequired, got %v", err)
	}
}
