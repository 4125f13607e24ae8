// Package orders runs the order lifecycle: creation behind the availability
// rules, admin updates, the atomic archive move and admin notifications.
package orders

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go-bakery/availability"
	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/utils"

	"go.uber.org/zap"
)

// Templates are the provider template ids of the transactional emails.
type Templates struct {
	OrderConfirmation string
	AdminNewOrder     string
	StatusUpdate      string
	ReviewRequest     string
}

type Config struct {
	Availability     availability.Config
	EmailService     string
	AdminEmail       string
	Templates        Templates
	ArchiveAfterDays int
}

// CalendarInvalidator drops cached calendar months after a write.
type CalendarInvalidator interface {
	Invalidate(ctx context.Context, day string)
}

// Service is the order lifecycle.
type Service struct {
	store    store.Store
	engine   *availability.Engine
	email    utils.EmailSender
	calendar CalendarInvalidator
	clock    utils.Clock
	loc      *time.Location
	cfg      Config
	logger   *zap.Logger

	mu        sync.Mutex
	watermark string
}

// NewService creates the service. cal may be nil when no calendar cache runs.
func NewService(st store.Store, engine *availability.Engine, email utils.EmailSender, cal CalendarInvalidator,
	clock utils.Clock, loc *time.Location, cfg Config, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:     st,
		engine:    engine,
		email:     email,
		calendar:  cal,
		clock:     clock,
		loc:       loc,
		cfg:       cfg,
		logger:    logger,
		watermark: utils.ISOTimestamp(clock.Now()),
	}
}

// OrderForm is the public order form.
type OrderForm struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	DesiredDate   string   `json:"desiredDate"`
	DesiredTime   string   `json:"desiredTime"`
	DiameterCm    float64  `json:"diameterCm"`
	SizeCategory  string   `json:"sizeCategory"`
	Extras        []string `json:"extras"`
	NumberOfTiers int      `json:"numberOfTiers"`
	DeliveryMode  string   `json:"deliveryMode"`
	Occasion      string   `json:"occasion"`
	Notes         string   `json:"notes"`
	TotalPrice    any      `json:"totalPrice"`
}

func (f *OrderForm) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return models.NewValidationError("name", "name is required")
	}
	if _, err := mail.ParseAddress(f.Email); err != nil {
		return models.NewValidationError("email", "a valid email address is required")
	}
	if f.DiameterCm <= 0 {
		return models.NewValidationError("diameterCm", "diameter must be positive")
	}
	if f.NumberOfTiers != 0 && f.NumberOfTiers < 2 {
		return models.NewValidationError("numberOfTiers", "a tiered cake has at least 2 tiers")
	}
	if f.DeliveryMode == "" {
		f.DeliveryMode = string(models.DeliveryPickup)
	}
	if !models.DeliveryMode(f.DeliveryMode).Valid() {
		return models.NewValidationError("deliveryMode", fmt.Sprintf("unknown delivery mode %q", f.DeliveryMode))
	}
	return nil
}

// ParseDesiredDate accepts YYYY-MM-DD and DD.MM.YYYY. Empty input yields nil.
func ParseDesiredDate(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := utils.ParseDay(s, loc)
	if err != nil {
		if t, err = utils.ParseGermanDay(s, loc); err != nil {
			return nil, models.NewValidationError("desiredDate", fmt.Sprintf("%q is not a valid date", s))
		}
	}
	return &t, nil
}

// Outcome is the result of a lifecycle operation. Email failures never fail the
// operation; they are reported here.
type Outcome struct {
	Order        *models.Order        `json:"order,omitempty"`
	Availability *availability.Result `json:"availability,omitempty"`
	EmailErrors  []string             `json:"emailErrors,omitempty"`
}

// Accepted reports whether an order was written.
func (o *Outcome) Accepted() bool {
	return o.Order != nil
}

// CreateOrder validates the form, checks availability and writes the order.
// A rejected candidate is not an error: the Outcome carries the availability
// result and no order.
func (s *Service) CreateOrder(ctx context.Context, form OrderForm) (*Outcome, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}
	candidate, err := ParseDesiredDate(form.DesiredDate, s.loc)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.Evaluate(ctx, candidate, s.cfg.Availability)
	if err != nil {
		return &Outcome{Availability: &res}, err
	}
	if !res.Accepted {
		return &Outcome{Availability: &res}, nil
	}

	customer := models.Customer{
		ID:    models.CustomerIDFor(form.Email),
		Name:  strings.TrimSpace(form.Name),
		Email: strings.TrimSpace(form.Email),
		Phone: strings.TrimSpace(form.Phone),
	}
	if err := s.store.Set(ctx, models.CollectionCustomers, customer.ID, customer.Document()); err != nil {
		return nil, err
	}

	order := s.newOrder(form, customer, *candidate)
	id, err := s.store.Add(ctx, models.CollectionOrders, order.Document(utils.ISOTimestamp(order.CreatedAt)))
	if err != nil {
		return nil, err
	}
	order.ID = id

	s.logger.Info("order created",
		zap.String("order", id),
		zap.String("desiredDate", order.DesiredDate),
		zap.String("size", string(order.Details.SizeCategory)))

	if s.calendar != nil {
		s.calendar.Invalidate(ctx, order.DesiredDate)
	}

	out := &Outcome{Order: &order, Availability: &res}
	s.notify(ctx, out, s.cfg.Templates.OrderConfirmation, customerVars(&order))
	return out, nil
}

func (s *Service) newOrder(form OrderForm, c models.Customer, desired time.Time) models.Order {
	details := map[string]any{"sizeCategory": form.SizeCategory, "diameterCm": form.DiameterCm}
	price, _ := models.ParsePrice(form.TotalPrice)
	occasion := strings.ToLower(strings.TrimSpace(form.Occasion))
	if occasion == "" {
		occasion = models.OccasionUnspecified
	}

	return models.Order{
		CustomerID:    c.ID,
		CustomerName:  c.Name,
		CustomerEmail: c.Email,
		CustomerPhone: c.Phone,
		Details: models.OrderDetails{
			DiameterCm:    form.DiameterCm,
			SizeCategory:  models.SizeCategoryOf(details),
			Extras:        form.Extras,
			NumberOfTiers: form.NumberOfTiers,
			DeliveryMode:  models.DeliveryMode(form.DeliveryMode),
		},
		DesiredDate: utils.FormatDay(desired),
		DesiredTime: strings.TrimSpace(form.DesiredTime),
		CreatedAt:   s.clock.Now().UTC().Truncate(time.Millisecond),
		Status:      models.StatusNew,
		TotalPrice:  price,
		Occasion:    occasion,
		Notes:       strings.TrimSpace(form.Notes),
	}
}

// Get returns an active order.
func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	rec, err := s.store.Get(ctx, models.CollectionOrders, id)
	if err != nil {
		return nil, err
	}
	order := models.DecodeOrder(rec.ID, rec.Data, s.loc)
	return &order, nil
}

// UpdateStatus sets the canonical status resolved from raw and emails the customer.
func (s *Service) UpdateStatus(ctx context.Context, id, raw string) (*Outcome, error) {
	status, ok := models.NormalizeStatus(raw)
	if !ok {
		return nil, models.NewValidationError("status", fmt.Sprintf("unknown status %q", raw))
	}
	if err := s.store.Update(ctx, models.CollectionOrders, id, map[string]any{models.FieldStatus: string(status)}); err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order status updated", zap.String("order", id), zap.String("status", string(status)))

	out := &Outcome{Order: order}
	s.notify(ctx, out, s.cfg.Templates.StatusUpdate, customerVars(order))
	return out, nil
}

// UpdatePrice stores the coerced price with two decimals.
func (s *Service) UpdatePrice(ctx context.Context, id string, raw any) (*Outcome, error) {
	price, ok := models.ParsePrice(raw)
	if !ok {
		return nil, models.NewValidationError("totalPrice", "price must be a number")
	}
	if price.IsNegative() {
		return nil, models.NewValidationError("totalPrice", "price must not be negative")
	}
	fields := map[string]any{models.FieldTotalPrice: price.StringFixed(2)}
	if err := s.store.Update(ctx, models.CollectionOrders, id, fields); err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Outcome{Order: order}, nil
}

// ListActive returns the active orders, newest first.
func (s *Service) ListActive(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, models.CollectionOrders)
}

// ListArchived returns the archived orders, newest first.
func (s *Service) ListArchived(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, models.CollectionArchive)
}

func (s *Service) list(ctx context.Context, collection string) ([]models.Order, error) {
	records, err := s.store.Query(ctx, store.Query{
		Collection: collection,
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(records))
	for _, rec := range records {
		orders = append(orders, models.DecodeOrder(rec.ID, rec.Data, s.loc))
	}
	return orders, nil
}

func (s *Service) notify(ctx context.Context, out *Outcome, templateID string, vars map[string]string) {
	if err := s.email.Send(ctx, s.cfg.EmailService, templateID, vars); err != nil {
		s.logger.Error("order email not sent",
			zap.String("template", templateID),
			zap.String("to", vars[utils.VarToEmail]),
			zap.Error(err))
		out.EmailErrors = append(out.EmailErrors, err.Error())
	}
}

func customerVars(o *models.Order) map[string]string {
	return map[string]string{
		utils.VarToEmail: o.CustomerEmail,
		utils.VarToName:  o.CustomerName,
		"order_id":       o.ID,
		"customer_name":  o.CustomerName,
		"desired_date":   o.DesiredDate,
		"desired_time":   o.DesiredTime,
		"size":           string(o.Details.SizeCategory),
		"diameter":       fmt.Sprintf("%g", o.Details.DiameterCm),
		"extras":         strings.Join(o.Details.Extras, ", "),
		"total_price":    o.TotalPrice.StringFixed(2),
		"status":         string(o.Status),
	}
}
