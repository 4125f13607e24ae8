package models

import "strings"

// Customer is the contact record an order refers to through customerId
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// CustomerIDFor derives the customer id from the email so repeat orders share one record.
func CustomerIDFor(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Document renders the customer for Store.Set
func (c *Customer) Document() map[string]any {
	return map[string]any{
		"name":  c.Name,
		"email": c.Email,
		"phone": c.Phone,
	}
}

// CustomerNameOf returns the display name stored on an order under any of its legacy keys.
func CustomerNameOf(data map[string]any) string {
	for _, path := range []string{FieldCustomerName, "kunde.name", "name"} {
		if s := stringAt(data, path); s != "" {
			return s
		}
	}
	return ""
}
