package models

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
)

// Review is a customer rating left through the emailed review link
type Review struct {
	ID        string       `json:"id"`
	OrderID   string       `json:"orderId"`
	Name      string       `json:"name"`
	Rating    int          `json:"rating"`
	Text      string       `json:"text"`
	Status    ReviewStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Document renders the review for the store
func (r *Review) Document(createdAt string) map[string]any {
	return map[string]any{
		"orderId":      r.OrderID,
		"name":         r.Name,
		"rating":       r.Rating,
		"text":         r.Text,
		"status":       string(r.Status),
		FieldCreatedAt: createdAt,
	}
}

// DecodeReview builds a Review from its stored document
func DecodeReview(id string, data map[string]any) Review {
	return Review{
		ID:        id,
		OrderID:   stringAt(data, "orderId"),
		Name:      stringAt(data, "name"),
		Rating:    int(numberAt(data, "rating")),
		Text:      stringAt(data, "text"),
		Status:    ReviewStatus(stringAt(data, "status")),
		CreatedAt: timeAt(data, FieldCreatedAt),
	}
}

// Notification records that the admin was told about a new order
type Notification struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"orderId"`
	CustomerName string    `json:"customerName"`
	DesiredDate  string    `json:"desiredDate"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NotificationIDFor keys notifications by order so repeated polls overwrite instead of duplicating.
func NotificationIDFor(orderID string) string {
	return "order-" + orderID
}

// Document renders the notification for the store
func (n *Notification) Document(createdAt string) map[string]any {
	return map[string]any{
		"orderId":         n.OrderID,
		FieldCustomerName: n.CustomerName,
		FieldDesiredDate:  n.DesiredDate,
		FieldCreatedAt:    createdAt,
	}
}

// DecodeNotification builds a Notification from its stored document
func DecodeNotification(id string, data map[string]any) Notification {
	return Notification{
		ID:           id,
		OrderID:      stringAt(data, "orderId"),
		CustomerName: stringAt(data, FieldCustomerName),
		DesiredDate:  stringAt(data, FieldDesiredDate),
		CreatedAt:    timeAt(data, FieldCreatedAt),
	}
}
