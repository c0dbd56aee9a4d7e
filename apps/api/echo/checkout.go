package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/ledger"
)

// The checkout API is consumed by the public payment page, so it sits
// outside the authenticated /v1 surface and speaks the page's JSON shapes.

type (
	createCheckoutSessionRequest struct {
		PaymentID         string  `json:"paymentId"`
		StudentName       string  `json:"studentName"`
		StudentEmail      string  `json:"studentEmail"`
		Amount            float64 `json:"amount"`
		LessonDescription string  `json:"lessonDescription"`
		InstructorID      string  `json:"instructorId"`
	}

	checkoutSessionResponse struct {
		SessionID string `json:"sessionId"`
		URL       string `json:"url"`
	}

	verifySessionResponse struct {
		Status        string  `json:"status"`
		PaymentID     string  `json:"paymentId"`
		StudentName   string  `json:"studentName"`
		AmountPaid    float64 `json:"amountPaid"`
		Currency      string  `json:"currency"`
		CustomerEmail string  `json:"customerEmail"`
		PaidAt        *string `json:"paidAt"`
	}

	checkoutApi struct {
		svc           *ledger.Service
		webhookSecret string
		logger        core.Logger
	}
)

func registerCheckoutAPI(g *echo.Group, svc *ledger.Service, webhookSecret string, logger core.Logger) {
	api := checkoutApi{svc: svc, webhookSecret: webhookSecret, logger: logger}

	// catch-all first; echo's own 405 reply carries no Allow header, and
	// the payment page expects one. The real handlers override their verb.
	g.Any("/create-checkout-session", methodNotAllowed(http.MethodPost))
	g.Any("/verify-session", methodNotAllowed(http.MethodGet))
	g.Any("/webhook", methodNotAllowed(http.MethodPost))

	g.POST("/create-checkout-session", api.createSession)
	g.GET("/verify-session", api.verifySession)
	g.POST("/webhook", api.webhook)
}

func methodNotAllowed(allowed string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctx.Response().Header().Set(echo.HeaderAllow, allowed)
		return echo.NewHTTPError(http.StatusMethodNotAllowed)
	}
}

func (api *checkoutApi) createSession(ctx echo.Context) error {
	var req createCheckoutSessionRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.PaymentID == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "paymentId is required"})
	}
	if req.StudentName == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "studentName is required"})
	}
	if req.Amount <= 0 {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "amount is required"})
	}

	sess, err := api.svc.CreateCheckoutFor(ctx.Request().Context(), ledger.CheckoutRequest{
		PaymentID:    req.PaymentID,
		StudentName:  req.StudentName,
		StudentEmail: req.StudentEmail,
		Description:  req.LessonDescription,
		Amount:       req.Amount,
	})
	if err != nil {
		switch errors.Cause(err) {
		case ledger.ErrNotFound:
			return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "payment not found"})
		case ledger.ErrNotEligible:
			return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "payment is not awaiting funds"})
		default:
			api.logger.Error("creating checkout session", err)
			return ctx.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}
	return ctx.JSON(http.StatusOK, checkoutSessionResponse{SessionID: sess.ID, URL: sess.URL})
}

func (api *checkoutApi) verifySession(ctx echo.Context) error {
	sessionID := ctx.QueryParam("session_id")
	if sessionID == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "session_id is required"})
	}

	sess, pmt, err := api.svc.VerifyCheckout(ctx.Request().Context(), sessionID)
	if err != nil {
		switch errors.Cause(err) {
		case ledger.ErrSessionNotFound, ledger.ErrNotFound:
			return ctx.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		default:
			api.logger.Error("verifying checkout session", err)
			return ctx.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}

	resp := verifySessionResponse{
		Status:        "unpaid",
		PaymentID:     sess.PaymentID,
		StudentName:   sess.StudentName,
		AmountPaid:    sess.AmountPaid,
		Currency:      sess.Currency,
		CustomerEmail: sess.CustomerEmail,
	}
	if sess.Paid {
		resp.Status = "paid"
		if !pmt.PaidAt.IsZero() {
			paidAt := pmt.PaidAt.UTC().Format(time.RFC3339)
			resp.PaidAt = &paidAt
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

// webhook acknowledges Stripe event deliveries. Payments are reconciled
// through verify-session, so events are only verified and logged here.
func (api *checkoutApi) webhook(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.String(http.StatusBadRequest, fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	event, err := webhook.ConstructEvent(payload, ctx.Request().Header.Get("stripe-signature"), api.webhookSecret)
	if err != nil {
		return ctx.String(http.StatusBadRequest, fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	switch event.Type {
	case "checkout.session.completed":
		api.logger.Info(fmt.Sprintf("checkout session completed: %s", event.ID))
	case "checkout.session.expired":
		api.logger.Info(fmt.Sprintf("checkout session expired: %s", event.ID))
	default:
		api.logger.Info(fmt.Sprintf("unhandled webhook event type: %s", event.Type))
	}
	return ctx.JSON(http.StatusOK, echo.Map{"received": true})
}
