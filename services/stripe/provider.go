package stripesvc

import (
	"context"
	"math"
	"net/http"

	"github.com/pkg/errors"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/ledger"
)

// metadata keys carried on every checkout session
const (
	metaPaymentID   = "paymentId"
	metaStudentName = "studentName"
)

type provider struct {
	api  *client.API
	conf core.StripeConfig
}

var _ ledger.CheckoutProvider = (*provider)(nil)

func NewProvider(conf core.StripeConfig) ledger.CheckoutProvider {
	api := &client.API{}
	api.Init(conf.SecretKey, nil)
	return &provider{api: api, conf: conf}
}

func (p *provider) CreateSession(ctx context.Context, req ledger.CheckoutRequest) (ledger.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(p.conf.SuccessURL),
		CancelURL:          stripe.String(p.conf.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.conf.Currency),
				UnitAmount: stripe.Int64(toMinorUnits(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String("Driving lessons"),
					Description: stripe.String(req.Description),
				},
			},
		}},
	}
	if req.StudentEmail != "" {
		params.CustomerEmail = stripe.String(req.StudentEmail)
	}
	params.AddMetadata(metaPaymentID, req.PaymentID)
	params.AddMetadata(metaStudentName, req.StudentName)

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return ledger.CheckoutSession{}, errors.Wrap(err, "stripe: creating checkout session")
	}
	return fromStripeSession(sess), nil
}

func (p *provider) GetSession(ctx context.Context, id string) (ledger.CheckoutSession, error) {
	sess, err := p.api.CheckoutSessions.Get(id, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) &&
			(stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound) {
			return ledger.CheckoutSession{}, ledger.ErrSessionNotFound
		}
		return ledger.CheckoutSession{}, errors.Wrap(err, "stripe: fetching checkout session")
	}
	return fromStripeSession(sess), nil
}

func fromStripeSession(sess *stripe.CheckoutSession) ledger.CheckoutSession {
	cs := ledger.CheckoutSession{
		ID:          sess.ID,
		URL:         sess.URL,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountPaid:  fromMinorUnits(sess.AmountTotal),
		Currency:    string(sess.Currency),
		PaymentID:   sess.Metadata[metaPaymentID],
		StudentName: sess.Metadata[metaStudentName],
	}
	if sess.CustomerDetails != nil {
		cs.CustomerEmail = sess.CustomerDetails.Email
	}
	if cs.CustomerEmail == "" {
		cs.CustomerEmail = sess.CustomerEmail
	}
	return cs
}

// Stripe amounts are integer minor units (pence).
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
