package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Collections owned by the external store.
const (
	CollectionOrders        = "orders"
	CollectionArchive       = "archive"
	CollectionCustomers     = "customers"
	CollectionReviews       = "reviews"
	CollectionNotifications = "notifications"
)

// Stored field paths of an order document.
const (
	FieldCustomerID        = "customerId"
	FieldCustomerName      = "customerName"
	FieldCustomerEmail     = "customerEmail"
	FieldCustomerPhone     = "customerPhone"
	FieldDetails           = "details"
	FieldDesiredDate       = "wunschtermin"
	FieldDesiredDateDatum  = "wunschtermin.datum"
	FieldDesiredTime       = "uhrzeit"
	FieldLegacyDesiredDate = "desiredDate"
	FieldCreatedAt         = "createdAt"
	FieldStatus            = "status"
	FieldTotalPrice        = "totalPrice"
	FieldOccasion          = "occasion"
	FieldNotes             = "notes"
	FieldReviewToken       = "reviewToken"
	FieldArchivedAt        = "archivedAt"
)

// Status is the canonical order status.
type Status string

const (
	StatusNew           Status = "new"
	StatusAccepted      Status = "accepted"
	StatusInPreparation Status = "in-preparation"
	StatusReady         Status = "ready"
	StatusRejected      Status = "rejected"
	StatusPickedUp      Status = "picked-up"
	StatusArchived      Status = "archived"
)

// Statuses lists the closed canonical set in lifecycle order.
var Statuses = []Status{
	StatusNew, StatusAccepted, StatusInPreparation, StatusReady,
	StatusRejected, StatusPickedUp, StatusArchived,
}

type SizeCategory string

const (
	SizeMini   SizeCategory = "mini"
	SizeNormal SizeCategory = "normal"
	SizeLarge  SizeCategory = "large"
)

type DeliveryMode string

const (
	DeliveryPickup DeliveryMode = "pickup"
	DeliveryNear   DeliveryMode = "delivery-near"
	DeliveryFar    DeliveryMode = "delivery-far"
)

// Valid reports whether m is a known delivery mode.
func (m DeliveryMode) Valid() bool {
	switch m {
	case DeliveryPickup, DeliveryNear, DeliveryFar:
		return true
	}
	return false
}

// OccasionUnspecified is reported for orders without an occasion tag.
const OccasionUnspecified = "unspecified"

// OrderDetails describes the cake itself
type OrderDetails struct {
	DiameterCm    float64      `json:"diameterCm"`
	SizeCategory  SizeCategory `json:"sizeCategory"`
	Extras        []string     `json:"extras"`
	NumberOfTiers int          `json:"numberOfTiers,omitempty"`
	DeliveryMode  DeliveryMode `json:"deliveryMode"`
}

// Order is the normalized view of an order document
type Order struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	Details       OrderDetails    `json:"details"`
	DesiredDate   string          `json:"desiredDate"` // canonical YYYY-MM-DD, empty when the stored shape is ambiguous
	DesiredTime   string          `json:"desiredTime,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	Status        Status          `json:"status"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Occasion      string          `json:"occasion"`
	Notes         string          `json:"notes,omitempty"`
	ReviewToken   string          `json:"-"`
	ArchivedAt    *time.Time      `json:"archivedAt,omitempty"`
}

// Document renders the order in the current storage shape: the desired date is
// always written as a plain YYYY-MM-DD string.
func (o *Order) Document(createdAt string) map[string]any {
	extras := make([]any, 0, len(o.Details.Extras))
	for _, e := range o.Details.Extras {
		extras = append(extras, e)
	}

	details := map[string]any{
		"diameterCm":   o.Details.DiameterCm,
		"sizeCategory": string(o.Details.SizeCategory),
		"extras":       extras,
		"deliveryMode": string(o.Details.DeliveryMode),
	}
	if o.Details.NumberOfTiers > 0 {
		details["numberOfTiers"] = o.Details.NumberOfTiers
	}

	doc := map[string]any{
		FieldCustomerID:    o.CustomerID,
		FieldCustomerName:  o.CustomerName,
		FieldCustomerEmail: o.CustomerEmail,
		FieldCustomerPhone: o.CustomerPhone,
		FieldDetails:       details,
		FieldDesiredDate:   o.DesiredDate,
		FieldCreatedAt:     createdAt,
		FieldStatus:        string(o.Status),
		FieldTotalPrice:    o.TotalPrice.StringFixed(2),
		FieldOccasion:      o.Occasion,
	}
	if o.DesiredTime != "" {
		doc[FieldDesiredTime] = o.DesiredTime
	}
	if o.Notes != "" {
		doc[FieldNotes] = o.Notes
	}
	return doc
}

// DecodeOrder builds the normalized view of a stored order document of any historical shape.
func DecodeOrder(id string, data map[string]any, loc *time.Location) Order {
	o := Order{
		ID:            id,
		CustomerID:    stringAt(data, FieldCustomerID),
		CustomerName:  CustomerNameOf(data),
		CustomerEmail: stringAt(data, FieldCustomerEmail),
		CustomerPhone: stringAt(data, FieldCustomerPhone),
		Occasion:      OccasionOf(data),
		Notes:         stringAt(data, FieldNotes),
		ReviewToken:   stringAt(data, FieldReviewToken),
	}

	if day, err := NormalizeDesiredDate(data, loc); err == nil {
		o.DesiredDate = day
	}
	o.DesiredTime = stringAt(data, FieldDesiredTime)
	if o.DesiredTime == "" {
		o.DesiredTime = stringAt(data, "wunschtermin.uhrzeit")
	}

	o.Status, _ = NormalizeStatus(stringAt(data, FieldStatus))
	o.TotalPrice, _ = CoercePrice(data)
	o.CreatedAt = timeAt(data, FieldCreatedAt)
	if archived := timeAt(data, FieldArchivedAt); !archived.IsZero() {
		o.ArchivedAt = &archived
	}

	details, _ := Lookup(data, FieldDetails)
	dm, _ := details.(map[string]any)
	o.Details = OrderDetails{
		DiameterCm:    numberAt(dm, "diameterCm"),
		SizeCategory:  SizeCategoryOf(dm),
		Extras:        ExtrasOf(dm),
		NumberOfTiers: int(numberAt(dm, "numberOfTiers")),
		DeliveryMode:  DeliveryMode(stringAt(dm, "deliveryMode")),
	}
	return o
}

// OrderSummary is the per-day detail shown in calendar tooltips.
type OrderSummary struct {
	ID           string       `json:"id"`
	CustomerName string       `json:"customerName"`
	SizeCategory SizeCategory `json:"sizeCategory"`
	Status       Status       `json:"status"`
}

// Summary reduces the order to its calendar summary
func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		SizeCategory: o.Details.SizeCategory,
		Status:       o.Status,
	}
}
