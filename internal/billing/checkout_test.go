package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v78"

	"portfolioSaaS/internal/config"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

var testBilling = config.BillingConfig{
	PricePro:   "price_pro",
	AppBaseURL: "https://app.example.com/",
}

func TestCreateCheckout(t *testing.T) {
	sessions := &fakeSessions{}
	p := newStripeProvider(sessions, testBilling)

	url, err := p.CreateCheckout(context.Background(), CheckoutRequest{Plan: "pro", Email: "ada@example.com", UserID: 3})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if url != "https://checkout.stripe.com/c/pay/cs_test_1" {
		t.Fatalf("unexpected url %q", url)
	}

	params := sessions.params
	if *params.Mode != string(stripe.CheckoutSessionModeSubscription) {
		t.Fatalf("unexpected mode %q", *params.Mode)
	}
	if *params.CustomerEmail != "ada@example.com" || *params.ClientReferenceID != "3" {
		t.Fatalf("unexpected customer fields %+v", params)
	}
	if len(params.LineItems) != 1 || *params.LineItems[0].Price != "price_pro" || *params.LineItems[0].Quantity != 1 {
		t.Fatalf("unexpected line items %+v", params.LineItems)
	}
	if *params.SuccessURL != "https://app.example.com/settings/billing?status=success" {
		t.Fatalf("unexpected success url %q", *params.SuccessURL)
	}
	if *params.CancelURL != "https://app.example.com/settings/billing?status=cancelled" {
		t.Fatalf("unexpected cancel url %q", *params.CancelURL)
	}
	if params.Metadata["user_id"] != "3" || params.Metadata["plan"] != "PRO" {
		t.Fatalf("unexpected session metadata %+v", params.Metadata)
	}
	if params.SubscriptionData == nil || params.SubscriptionData.Metadata["user_id"] != "3" || params.SubscriptionData.Metadata["plan"] != "PRO" {
		t.Fatalf("unexpected subscription metadata %+v", params.SubscriptionData)
	}
}

func TestCreateCheckoutRejectsUnknownOrUnpricedPlan(t *testing.T) {
	p := newStripeProvider(&fakeSessions{}, testBilling)

	for _, plan := range []string{"platinum", "ENTERPRISE", ""} {
		if _, err := p.CreateCheckout(context.Background(), CheckoutRequest{Plan: plan}); !errors.Is(err, ErrInvalidPlan) {
			t.Fatalf("plan %q: expected ErrInvalidPlan, got %v", plan, err)
		}
	}
}

func TestCreateCheckoutProviderError(t *testing.T) {
	boom := errors.New("stripe down")
	p := newStripeProvider(&fakeSessions{err: boom}, testBilling)

	if _, err := p.CreateCheckout(context.Background(), CheckoutRequest{Plan: "PRO"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestUnconfiguredProvider(t *testing.T) {
	if _, err := NewStripeProvider(config.BillingConfig{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := (Unavailable{}).CreateCheckout(context.Background(), CheckoutRequest{Plan: "PRO"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
