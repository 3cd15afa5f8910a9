package stripe

import (
	"context"
	"testing"

	"github.com/angelmondragon/techstore-checkout/pkg/config"
)

func TestNewClientValidatesKeys(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{"missing secret", config.StripeConfig{Env: "test"}, true},
		{"bad env", config.StripeConfig{Env: "staging", SecretKey: "sk_test_1"}, true},
		{"live key in test", config.StripeConfig{Env: "test", SecretKey: "sk_live_1"}, true},
		{"test key in live", config.StripeConfig{Env: "live", SecretKey: "sk_test_1"}, true},
		{"publishable mismatch", config.StripeConfig{Env: "test", SecretKey: "sk_test_1", PublishableKey: "pk_live_1"}, true},
		{"restricted test key", config.StripeConfig{Env: "test", SecretKey: "rk_test_1"}, false},
		{"default env", config.StripeConfig{SecretKey: "sk_test_1", PublishableKey: "pk_test_1"}, false},
		{"live", config.StripeConfig{Env: "LIVE", SecretKey: "sk_live_1", PublishableKey: "pk_live_1"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.API() == nil {
				t.Fatalf("expected api client")
			}
		})
	}
}

func TestClientAccessors(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		Env:            "test",
		SecretKey:      "sk_test_1",
		PublishableKey: " pk_test_abc ",
		ReturnURL:      "https://shop.example/checkout/return",
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Environment() != "test" || client.PublishableKey() != "pk_test_abc" {
		t.Fatalf("unexpected accessors %q %q", client.Environment(), client.PublishableKey())
	}
	if client.ReturnURL() != "https://shop.example/checkout/return" {
		t.Fatalf("unexpected return url %q", client.ReturnURL())
	}

	var nilClient *Client
	if nilClient.PublishableKey() != "" || nilClient.API() != nil {
		t.Fatalf("nil client accessors should be zero")
	}
}
