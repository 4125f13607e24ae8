// controllers/order.go
package controllers

import (
	"context"
	"net/http"

	"go-bakery/availability"
	"go-bakery/calendar"
	"go-bakery/orders"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// OrderController handles the order form, availability and calendar requests
type OrderController struct {
	Orders   *orders.Service
	Engine   *availability.Engine
	Rules    availability.Config
	Calendar calendar.Aggregator
	Logger   *zap.Logger
}

// NewOrderController creates a new OrderController
func NewOrderController(svc *orders.Service, engine *availability.Engine, rules availability.Config,
	cal calendar.Aggregator, logger *zap.Logger) *OrderController {
	return &OrderController{
		Orders:   svc,
		Engine:   engine,
		Rules:    rules,
		Calendar: cal,
		Logger:   logger,
	}
}

type rejectedResponse struct {
	errorResponse
	Availability *availability.Result `json:"availability"`
}

// CreateOrder places an order from the public form
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var form orders.OrderForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, oc.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := oc.Orders.CreateOrder(ctx, form)
	if err != nil {
		if out != nil && out.Availability != nil && out.Availability.Decision == availability.DecisionUnknown {
			writeJSON(w, http.StatusServiceUnavailable, rejectedResponse{
				errorResponse: errorResponse{Error: availability.ReasonUnknown, Retry: true},
				Availability:  out.Availability,
			})
			oc.Logger.Warn("order not placed, availability unknown", zap.Error(err))
			return
		}
		handleError(w, oc.Logger, err)
		return
	}

	if !out.Accepted() {
		status := http.StatusConflict
		if out.Availability.Decision == availability.DecisionDateRequired {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, rejectedResponse{
			errorResponse: errorResponse{Error: out.Availability.Reason},
			Availability:  out.Availability,
		})
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

// Availability evaluates ?date= against the acceptance rules
func (oc *OrderController) Availability(w http.ResponseWriter, r *http.Request) {
	candidate, err := orders.ParseDesiredDate(r.URL.Query().Get("date"), oc.Engine.Location())
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := oc.Engine.Evaluate(ctx, candidate, oc.Rules)
	if err != nil {
		oc.Logger.Warn("availability unknown", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, rejectedResponse{
			errorResponse: errorResponse{Error: res.Reason, Retry: true},
			Availability:  &res,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PublicCalendar returns per-day order counts of a month
func (oc *OrderController) PublicCalendar(w http.ResponseWriter, r *http.Request) {
	oc.calendar(w, r, false)
}

// AdminCalendar returns per-day counts with order summaries
func (oc *OrderController) AdminCalendar(w http.ResponseWriter, r *http.Request) {
	oc.calendar(w, r, true)
}

func (oc *OrderController) calendar(w http.ResponseWriter, r *http.Request, details bool) {
	year, month, err := yearMonth(r)
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := oc.Calendar.Aggregate(ctx, year, month)
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}
	if !details {
		res = res.WithoutDetails()
	}
	writeJSON(w, http.StatusOK, res)
}

// GetOrders lists the active orders
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := oc.Orders.ListActive(ctx)
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetArchive lists the archived orders
func (oc *OrderController) GetArchive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := oc.Orders.ListArchived(ctx)
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetNotifications lists the new-order notifications
func (oc *OrderController) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := oc.Orders.ListNotifications(ctx)
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdateOrderStatus allows the admin to set any status
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		handleError(w, oc.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := oc.Orders.UpdateStatus(ctx, mux.Vars(r)["id"], body.Status)
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateOrderPrice allows the admin to set the final price
func (oc *OrderController) UpdateOrderPrice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TotalPrice any `json:"totalPrice"`
	}
	if err := decodeJSON(r, &body); err != nil {
		handleError(w, oc.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := oc.Orders.UpdatePrice(ctx, mux.Vars(r)["id"], body.TotalPrice)
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ArchiveOrder moves an order to the archive
func (oc *OrderController) ArchiveOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := mux.Vars(r)["id"]
	if err := oc.Orders.Archive(ctx, id); err != nil {
		handleError(w, oc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order archived", "id": id})
}

// RequestReview emails the customer a review link
func (oc *OrderController) RequestReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out, err := oc.Orders.RequestReview(ctx, mux.Vars(r)["id"])
	if err != nil {
		handleError(w, oc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
