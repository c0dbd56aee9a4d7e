package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/roadmasterhq/roadmaster/core/ledger"
)

type ledgerApi struct {
	svc *ledger.Service
}

func registerLedgerAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *ledger.Service) {
	api := ledgerApi{svc: svc}

	pg := g.Group("/payments", jwt, staffMiddleware())
	pg.POST("", api.create)
	pg.GET("", api.query)
	pg.GET("/summary", api.summary)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.DELETE("/:id", api.destroy, adminMiddleware())
	pg.GET("/:id/events", api.events)
	pg.POST("/:id/receive", api.receive)
	pg.POST("/:id/refund", api.refund)
	pg.POST("/:id/checkout", api.checkout)

	eg := g.Group("/expenses", jwt, staffMiddleware())
	eg.POST("", api.createExpense)
	eg.GET("", api.queryExpenses)
	eg.GET("/:id", api.retrieveExpense)
	eg.PUT("/:id", api.updateExpense)
	eg.DELETE("/:id", api.destroyExpense, adminMiddleware())
}

// Handlers

func (api *ledgerApi) create(ctx echo.Context) error {
	var data ledger.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	pmt, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *ledgerApi) query(ctx echo.Context) error {
	filter := new(ledger.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ledger.Payment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	payments, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []ledger.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *ledgerApi) summary(ctx echo.Context) error {
	filter := new(ledger.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	sum, err := api.svc.Summarize(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "summarizing ledger")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *ledgerApi) retrieve(ctx echo.Context) error {
	pmt, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == ledger.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *ledgerApi) update(ctx echo.Context) error {
	var data ledger.UpdatePayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	pmt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == ledger.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *ledgerApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == ledger.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting payment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *ledgerApi) events(ctx echo.Context) error {
	events, err := api.svc.Events(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying payment events")
	}
	if events == nil {
		events = []ledger.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *ledgerApi) receive(ctx echo.Context) error {
	var data ledger.ReceivePayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReceivePayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	pmt, err := api.svc.Receive(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return api.mapLedgerError(err, "receiving payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *ledgerApi) refund(ctx echo.Context) error {
	var data ledger.RefundPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefundPayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	pmt, err := api.svc.Refund(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return api.mapLedgerError(err, "refunding payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

// checkout creates a hosted checkout session for the payment's outstanding
// balance; the staff-facing counterpart of POST /api/create-checkout-session.
func (api *ledgerApi) checkout(ctx echo.Context) error {
	sess, err := api.svc.CreateCheckout(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return api.mapLedgerError(err, "creating checkout session")
	}
	return ctx.JSON(http.StatusOK, checkoutSessionResponse{SessionID: sess.ID, URL: sess.URL})
}

func (api *ledgerApi) mapLedgerError(err error, msg string) error {
	switch cause := errors.Cause(err); cause {
	case ledger.ErrNotFound:
		return errHttpNotFound
	case ledger.ErrNotEligible, ledger.ErrNothingToCheckout:
		return echo.NewHTTPError(http.StatusConflict, cause.Error())
	default:
		return errors.Wrap(err, msg)
	}
}

// Expenses

func (api *ledgerApi) createExpense(ctx echo.Context) error {
	var data ledger.NewExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	exp, err := api.svc.CreateExpense(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating expense")
	}
	return ctx.JSON(http.StatusCreated, exp)
}

func (api *ledgerApi) queryExpenses(ctx echo.Context) error {
	filter := new(ledger.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ledger.Expense{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	expenses, err := api.svc.QueryExpenses(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying expenses")
	}
	if expenses == nil {
		expenses = []ledger.Expense{}
	}
	return ctx.JSON(http.StatusOK, expenses)
}

func (api *ledgerApi) retrieveExpense(ctx echo.Context) error {
	exp, err := api.svc.GetExpense(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == ledger.ErrExpenseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting expense")
	}
	return ctx.JSON(http.StatusOK, exp)
}

func (api *ledgerApi) updateExpense(ctx echo.Context) error {
	var data ledger.NewExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	exp, err := api.svc.UpdateExpense(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == ledger.ErrExpenseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating expense")
	}
	return ctx.JSON(http.StatusOK, exp)
}

func (api *ledgerApi) destroyExpense(ctx echo.Context) error {
	if err := api.svc.DeleteExpense(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == ledger.ErrExpenseNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting expense")
	}
	return ctx.NoContent(http.StatusNoContent)
}
