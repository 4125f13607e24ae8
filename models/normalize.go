package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	dayLayout       = "2006-01-02"
	germanDayLayout = "02.01.2006"
)

// Lookup resolves a dot-separated path inside nested documents.
func Lookup(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringAt(data map[string]any, path string) string {
	v, ok := Lookup(data, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func numberAt(data map[string]any, path string) float64 {
	v, ok := Lookup(data, path)
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return f
}

func timeAt(data map[string]any, path string) time.Time {
	v, ok := Lookup(data, path)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// NormalizeDesiredDate reduces both historical desired-date shapes to a canonical
// YYYY-MM-DD day. The plain string shape must already be canonical; the nested
// shape's datum may be a YYYY-MM-DD, DD.MM.YYYY or RFC 3339 string, a native timestamp, or a
// serialized {seconds, nanoseconds} timestamp. Timestamps are read in loc.
func NormalizeDesiredDate(data map[string]any, loc *time.Location) (string, error) {
	for _, key := range []string{FieldDesiredDate, FieldLegacyDesiredDate} {
		raw, ok := data[key]
		if !ok || raw == nil {
			continue
		}

		switch v := raw.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			return canonicalDay(v)
		case map[string]any:
			datum, ok := v["datum"]
			if !ok || datum == nil {
				return "", fmt.Errorf("%w: %s without datum", ErrAmbiguousDateShape, key)
			}
			return normalizeDatum(datum, loc)
		default:
			return "", fmt.Errorf("%w: %s is %T", ErrAmbiguousDateShape, key, raw)
		}
	}
	return "", fmt.Errorf("%w: no desired date", ErrAmbiguousDateShape)
}

func normalizeDatum(datum any, loc *time.Location) (string, error) {
	switch v := datum.(type) {
	case string:
		if day, ok := NormalizeDayString(v); ok {
			return day, nil
		}
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return "", fmt.Errorf("%w: datum %q", ErrAmbiguousDateShape, v)
		}
		return t.In(loc).Format(dayLayout), nil
	case time.Time:
		return v.In(loc).Format(dayLayout), nil
	case map[string]any:
		if t, ok := serializedTimestamp(v); ok {
			return t.In(loc).Format(dayLayout), nil
		}
	}
	return "", fmt.Errorf("%w: datum is %T", ErrAmbiguousDateShape, datum)
}

func canonicalDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrAmbiguousDateShape, s)
	}
	return t.Format(dayLayout), nil
}

// serializedTimestamp reads timestamps exported as {seconds, nanoseconds} maps.
func serializedTimestamp(m map[string]any) (time.Time, bool) {
	for _, keys := range [][2]string{{"seconds", "nanoseconds"}, {"_seconds", "_nanoseconds"}} {
		sec, ok := toFloat(m[keys[0]])
		if !ok {
			continue
		}
		nsec, _ := toFloat(m[keys[1]])
		return time.Unix(int64(sec), int64(nsec)), true
	}
	return time.Time{}, false
}

// NormalizeDayString accepts YYYY-MM-DD or DD.MM.YYYY and returns the canonical day.
func NormalizeDayString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dayLayout, germanDayLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dayLayout), true
		}
	}
	return "", false
}

// statusTable maps folded legacy status strings to the canonical set. Keys are
// case-folded with '-' and '_' replaced by spaces.
var statusTable = map[string]Status{
	"new":              StatusNew,
	"neu":              StatusNew,
	"offen":            StatusNew,
	"eingegangen":      StatusNew,
	"pending":          StatusNew,
	"ausstehend":       StatusNew,
	"neue bestellung":  StatusNew,
	"accepted":         StatusAccepted,
	"angenommen":       StatusAccepted,
	"akzeptiert":       StatusAccepted,
	"bestätigt":        StatusAccepted,
	"bestaetigt":       StatusAccepted,
	"confirmed":        StatusAccepted,
	"in preparation":   StatusInPreparation,
	"in zubereitung":   StatusInPreparation,
	"in bearbeitung":   StatusInPreparation,
	"in arbeit":        StatusInPreparation,
	"preparing":        StatusInPreparation,
	"processing":       StatusInPreparation,
	"in progress":      StatusInPreparation,
	"ready":            StatusReady,
	"fertig":           StatusReady,
	"bereit":           StatusReady,
	"abholbereit":      StatusReady,
	"ready for pickup": StatusReady,
	"rejected":         StatusRejected,
	"abgelehnt":        StatusRejected,
	"storniert":        StatusRejected,
	"cancelled":        StatusRejected,
	"canceled":         StatusRejected,
	"declined":         StatusRejected,
	"picked up":        StatusPickedUp,
	"abgeholt":         StatusPickedUp,
	"geliefert":        StatusPickedUp,
	"delivered":        StatusPickedUp,
	"completed":        StatusPickedUp,
	"erledigt":         StatusPickedUp,
	"abgeschlossen":    StatusPickedUp,
	"archived":         StatusArchived,
	"archiviert":       StatusArchived,
}

var statusSeparators = strings.NewReplacer("_", " ", "-", " ")

func statusKey(raw string) string {
	s := norm.NFC.String(strings.TrimSpace(raw))
	s = cases.Fold().String(s)
	s = statusSeparators.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeStatus maps any stored status string onto the canonical set.
// Unrecognized values, including empty ones, become StatusNew with ok=false.
func NormalizeStatus(raw string) (Status, bool) {
	st, ok := statusTable[statusKey(raw)]
	if !ok {
		return StatusNew, false
	}
	return st, true
}

var priceFields = []string{FieldTotalPrice, "gesamtpreis", "preis", "price", "details.price"}

// CoercePrice returns the first non-null price under the known legacy keys.
// A missing price is zero; an unparseable one is zero with ok=false.
func CoercePrice(data map[string]any) (decimal.Decimal, bool) {
	for _, path := range priceFields {
		v, ok := Lookup(data, path)
		if !ok || v == nil {
			continue
		}
		return ParsePrice(v)
	}
	return decimal.Zero, true
}

var priceCleaner = strings.NewReplacer("€", "", "EUR", "", " ", "", "\u00a0", "")

// ParsePrice coerces a number or a price string such as "42,50 €".
func ParsePrice(v any) (decimal.Decimal, bool) {
	if f, ok := toFloat(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	}

	s, ok := v.(string)
	if !ok {
		return decimal.Zero, false
	}
	s = priceCleaner.Replace(strings.TrimSpace(s))
	// The later separator is the decimal mark: "1,234.50" and "1.234,50" are equal.
	if comma := strings.LastIndex(s, ","); comma >= 0 {
		if strings.LastIndex(s, ".") > comma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// SizeCategoryOf returns the stored category when valid, else derives it from the diameter.
func SizeCategoryOf(details map[string]any) SizeCategory {
	switch c := SizeCategory(strings.ToLower(stringAt(details, "sizeCategory"))); c {
	case SizeMini, SizeNormal, SizeLarge:
		return c
	}
	return SizeForDiameter(numberAt(details, "diameterCm"))
}

// SizeForDiameter buckets a cake diameter: below 20cm mini, up to 26cm normal, above large.
func SizeForDiameter(cm float64) SizeCategory {
	switch {
	case cm <= 0:
		return SizeNormal
	case cm < 20:
		return SizeMini
	case cm <= 26:
		return SizeNormal
	default:
		return SizeLarge
	}
}

// ExtrasOf returns the extras list of an order's details.
func ExtrasOf(details map[string]any) []string {
	v, ok := Lookup(details, "extras")
	if !ok {
		return nil
	}
	var out []string
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, e := range list {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Extras tiers used by the accounting breakdown.
const (
	TierBasic    = "basic"
	TierStandard = "standard"
	TierPremium  = "premium"
)

// ExtrasTier classifies an order by its number of extras.
func ExtrasTier(n int) string {
	switch {
	case n == 0:
		return TierBasic
	case n > 2:
		return TierPremium
	default:
		return TierStandard
	}
}

// OccasionOf returns the lower-cased occasion tag or OccasionUnspecified.
func OccasionOf(data map[string]any) string {
	if s := strings.ToLower(stringAt(data, FieldOccasion)); s != "" {
		return s
	}
	return OccasionUnspecified
}
