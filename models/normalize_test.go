package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDesiredDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    map[string]any
		want    string
		wantErr bool
	}{
		{name: "plain string", data: map[string]any{"wunschtermin": "2024-07-10"}, want: "2024-07-10"},
		{name: "nested string", data: map[string]any{"wunschtermin": map[string]any{"datum": "2024-07-10", "uhrzeit": "14:00"}}, want: "2024-07-10"},
		{name: "nested german string", data: map[string]any{"wunschtermin": map[string]any{"datum": "10.07.2024"}}, want: "2024-07-10"},
		{name: "nested rfc3339 read in zone", data: map[string]any{"wunschtermin": map[string]any{"datum": "2024-07-09T22:30:00Z"}}, want: "2024-07-10"},
		{name: "nested timestamp", data: map[string]any{"wunschtermin": map[string]any{"datum": time.Date(2024, 7, 10, 8, 0, 0, 0, time.UTC)}}, want: "2024-07-10"},
		{name: "serialized timestamp", data: map[string]any{"wunschtermin": map[string]any{"datum": map[string]any{"_seconds": float64(1720598400), "_nanoseconds": float64(0)}}}, want: "2024-07-10"},
		{name: "legacy key", data: map[string]any{"desiredDate": "2024-07-10"}, want: "2024-07-10"},
		{name: "empty key falls through to legacy", data: map[string]any{"wunschtermin": "  ", "desiredDate": "2024-07-10"}, want: "2024-07-10"},
		{name: "empty string only", data: map[string]any{"wunschtermin": ""}, wantErr: true},
		{name: "plain string with time", data: map[string]any{"wunschtermin": "2024-07-10T08:00:00Z"}, wantErr: true},
		{name: "plain german string", data: map[string]any{"wunschtermin": "10.07.2024"}, wantErr: true},
		{name: "nested without datum", data: map[string]any{"wunschtermin": map[string]any{"uhrzeit": "14:00"}}, wantErr: true},
		{name: "number", data: map[string]any{"wunschtermin": 20240710}, wantErr: true},
		{name: "missing", data: map[string]any{}, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := NormalizeDesiredDate(test.data, berlin)
			if test.wantErr {
				assert.True(t, errors.Is(err, ErrAmbiguousDateShape), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestNormalizeDayStringRoundTrip(t *testing.T) {
	day, ok := NormalizeDayString("05.03.2024")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05", day)

	parsed, err := time.Parse(dayLayout, day)
	require.NoError(t, err)
	assert.Equal(t, 2024, parsed.Year())
	assert.Equal(t, time.March, parsed.Month())

	_, ok = NormalizeDayString("31.02.2024")
	assert.False(t, ok)
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw   string
		want  Status
		known bool
	}{
		{"new", StatusNew, true},
		{"Neu", StatusNew, true},
		{"ANGENOMMEN", StatusAccepted, true},
		{"in_preparation", StatusInPreparation, true},
		{"In Zubereitung", StatusInPreparation, true},
		{"  fertig ", StatusReady, true},
		{"Abgelehnt", StatusRejected, true},
		{"picked-up", StatusPickedUp, true},
		{"Abgeholt", StatusPickedUp, true},
		{"BESTÄTIGT", StatusAccepted, true},
		{"archiviert", StatusArchived, true},
		{"", StatusNew, false},
		{"irgendwas", StatusNew, false},
	}
	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			got, known := NormalizeStatus(test.raw)
			assert.Equal(t, test.want, got)
			assert.Equal(t, test.known, known)
		})
	}
}

func TestCoercePrice(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
		ok   bool
	}{
		{name: "number", data: map[string]any{"totalPrice": 42.5}, want: "42.5", ok: true},
		{name: "string", data: map[string]any{"totalPrice": "42.50"}, want: "42.5", ok: true},
		{name: "german string", data: map[string]any{"totalPrice": "1.042,50 €"}, want: "1042.5", ok: true},
		{name: "english thousands", data: map[string]any{"totalPrice": "1,234.50"}, want: "1234.5", ok: true},
		{name: "german decimal only", data: map[string]any{"totalPrice": "10,005 €"}, want: "10.005", ok: true},
		{name: "two decimal marks", data: map[string]any{"totalPrice": "1,23,4"}, want: "0", ok: false},
		{name: "legacy field", data: map[string]any{"gesamtpreis": "30"}, want: "30", ok: true},
		{name: "nested legacy field", data: map[string]any{"details": map[string]any{"price": 12}}, want: "12", ok: true},
		{name: "null skipped", data: map[string]any{"totalPrice": nil, "preis": 7}, want: "7", ok: true},
		{name: "missing", data: map[string]any{}, want: "0", ok: true},
		{name: "invalid", data: map[string]any{"totalPrice": "invalid"}, want: "0", ok: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := CoercePrice(test.data)
			assert.Equal(t, test.ok, ok)
			assert.True(t, decimal.RequireFromString(test.want).Equal(got), "got %s", got)
		})
	}
}

func TestSizeCategoryOf(t *testing.T) {
	assert.Equal(t, SizeLarge, SizeCategoryOf(map[string]any{"sizeCategory": "large", "diameterCm": 10}))
	assert.Equal(t, SizeMini, SizeCategoryOf(map[string]any{"diameterCm": float64(18)}))
	assert.Equal(t, SizeNormal, SizeCategoryOf(map[string]any{"diameterCm": float64(26)}))
	assert.Equal(t, SizeLarge, SizeCategoryOf(map[string]any{"diameterCm": float64(30)}))
	assert.Equal(t, SizeNormal, SizeCategoryOf(map[string]any{"sizeCategory": "giant"}))
	assert.Equal(t, SizeNormal, SizeCategoryOf(nil))
}

func TestExtrasTier(t *testing.T) {
	assert.Equal(t, TierBasic, ExtrasTier(0))
	assert.Equal(t, TierStandard, ExtrasTier(1))
	assert.Equal(t, TierStandard, ExtrasTier(2))
	assert.Equal(t, TierPremium, ExtrasTier(3))
}

func TestDecodeOrderRoundTrip(t *testing.T) {
	created := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	o := Order{
		CustomerID:    "anna@example.com",
		CustomerName:  "Anna",
		CustomerEmail: "anna@example.com",
		Details: OrderDetails{
			DiameterCm:   24,
			SizeCategory: SizeNormal,
			Extras:       []string{"fondant", "figuren"},
			DeliveryMode: DeliveryPickup,
		},
		DesiredDate: "2024-07-10",
		Status:      StatusNew,
		TotalPrice:  decimal.RequireFromString("45.5"),
		Occasion:    "birthday",
	}

	got := DecodeOrder("o1", o.Document("2024-06-01T09:30:00.000Z"), time.UTC)

	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, "Anna", got.CustomerName)
	assert.Equal(t, "2024-07-10", got.DesiredDate)
	assert.Equal(t, []string{"fondant", "figuren"}, got.Details.Extras)
	assert.Equal(t, SizeNormal, got.Details.SizeCategory)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, "45.50", got.TotalPrice.StringFixed(2))
}
