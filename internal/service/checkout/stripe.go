// internal/service/checkout/stripe.go
package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// StripeClient implements PaymentClient against Stripe Checkout. One-off
// payment mode with inline price data; the product catalog lives in code,
// not in Stripe.
type StripeClient struct {
	sc            *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripeClient(secretKey, webhookSecret, successURL, cancelURL string) *StripeClient {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeClient{
		sc:            sc,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, p PaymentParams) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		CustomerEmail:     stripe.String(p.Email),
		ClientReferenceID: stripe.String(p.SessionID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.ProductName),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("coaching_session_id", p.SessionID)

	cs, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("stripe checkout session: %w", err)
	}

	return cs.URL, cs.ID, nil
}

func (s *StripeClient) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe webhook: %w", err)
	}

	out := &WebhookEvent{Type: string(event.Type)}
	if event.Type != "checkout.session.completed" {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("stripe webhook payload: %w", err)
	}

	out.CheckoutRef = cs.ID
	out.PaymentReference = cs.ID
	if cs.PaymentIntent != nil {
		out.PaymentReference = cs.PaymentIntent.ID
	}

	return out, nil
}
