// Package payment calls the card-payment provider (Stripe-compatible API)
// for disclosure-fee charges.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/infra/resilience"
)

var tracer = otel.Tracer("payment")

// Client talks to the payment provider's intents API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	currency   string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewClient creates a payment client.
func NewClient(httpClient *http.Client, baseURL, apiKey, currency string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		currency:   currency,
		cb:         cb,
		cfg:        cfg,
	}
}

// intentResponse is the provider's payment-intent payload. Amounts are in
// minor units (cents).
type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

func (r intentResponse) toDomain() *domain.ChargeIntent {
	return &domain.ChargeIntent{
		ID:           r.ID,
		ClientSecret: r.ClientSecret,
		Amount:       float64(r.Amount) / 100,
		Currency:     r.Currency,
		Status:       r.Status,
	}
}

// CreateChargeIntent opens a card charge for the amount in whole currency
// units and returns the client secret the frontend uses to confirm it.
func (c *Client) CreateChargeIntent(ctx context.Context, amount float64) (*domain.ChargeIntent, error) {
	ctx, span := tracer.Start(ctx, "Payment.CreateChargeIntent")
	defer span.End()
	span.SetAttributes(attribute.Float64("charge.amount", amount))

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(int64(math.Round(amount*100)), 10))
	form.Set("currency", c.currency)
	form.Set("payment_method_types[]", "card")

	var intent intentResponse

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := fmt.Sprintf("%s/v1/payment_intents", c.baseURL)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				// Client errors never succeed on retry.
				return resilience.Permanent(fmt.Errorf("payment API returned status %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("payment API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&intent)
		})
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "payment", Err: err}
	}

	return intent.toDomain(), nil
}

// GetChargeIntent fetches the current state of a charge so the engine can
// verify it before recording a contact request.
func (c *Client) GetChargeIntent(ctx context.Context, intentID string) (*domain.ChargeIntent, error) {
	ctx, span := tracer.Start(ctx, "Payment.GetChargeIntent")
	defer span.End()
	span.SetAttributes(attribute.String("charge.intent_id", intentID))

	var intent intentResponse

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseURL, url.PathEscape(intentID))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+c.apiKey)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "charge intent", ID: intentID})
			}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return resilience.Permanent(fmt.Errorf("payment API returned status %d", resp.StatusCode))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("payment API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&intent)
		})
	})
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, nf
		}
		return nil, &domain.ErrExternalService{Service: "payment", Err: err}
	}

	return intent.toDomain(), nil
}
