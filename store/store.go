// Package store is the document-store collaborator: range queries over dot-path
// fields and all-or-nothing batch writes. Implementations wrap infrastructure
// failures in models.ErrStoreUnavailable and report missing documents as
// models.ErrNotFound.
package store

import (
	"context"
	"fmt"
	"time"

	"go-bakery/models"
)

// Op is a comparison operator of a Filter.
type Op string

const (
	OpEq  Op = "=="
	OpGte Op = ">="
	OpLte Op = "<="
	OpNeq Op = "!="
)

// Filter is one (field-path, operator, value) predicate.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents of one collection. Results are ordered only when
// OrderBy is set; Limit 0 means unbounded.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Record is a stored document and its id.
type Record struct {
	ID   string
	Data map[string]any
}

type WriteType string

const (
	WriteSet    WriteType = "set"
	WriteDelete WriteType = "delete"
)

// WriteOp is one operation of an atomic batch.
type WriteOp struct {
	Type       WriteType
	Collection string
	ID         string
	Data       map[string]any
}

// SetOp builds a set operation.
func SetOp(collection, id string, data map[string]any) WriteOp {
	return WriteOp{Type: WriteSet, Collection: collection, ID: id, Data: data}
}

// DeleteOp builds a delete operation.
func DeleteOp(collection, id string) WriteOp {
	return WriteOp{Type: WriteDelete, Collection: collection, ID: id}
}

//go:generate mockgen -source=store.go -destination=mock/store.go -package=mock
type Store interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Query(ctx context.Context, q Query) ([]Record, error)
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Create writes a document under id only if none exists, else models.ErrAlreadyExists.
	Create(ctx context.Context, collection, id string, data map[string]any) error
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	BatchWrite(ctx context.Context, ops []WriteOp) error
}

func validateOps(ops []WriteOp) error {
	if len(ops) == 0 {
		return fmt.Errorf("empty batch")
	}
	for i, op := range ops {
		if op.Collection == "" || op.ID == "" {
			return fmt.Errorf("batch op %d: collection and id are required", i)
		}
		switch op.Type {
		case WriteSet:
			if op.Data == nil {
				return fmt.Errorf("batch op %d: set without data", i)
			}
		case WriteDelete:
		default:
			return fmt.Errorf("batch op %d: unknown type %q", i, op.Type)
		}
	}
	return nil
}

// compare orders two values of the same kind. Values of different kinds are
// incomparable, mirroring the type bracketing of document stores.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok || av != bv {
			return 0, false
		}
		return 0, true
	}

	af, ok := number(a)
	if !ok {
		return 0, false
	}
	bf, ok := number(b)
	if !ok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func number(v any) (float64, bool) {
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

func matches(doc map[string]any, f Filter) bool {
	v, ok := models.Lookup(doc, f.Field)
	if !ok || v == nil {
		return f.Op == OpNeq
	}
	c, comparable := compare(v, f.Value)
	switch f.Op {
	case OpEq:
		return comparable && c == 0
	case OpNeq:
		return !comparable || c != 0
	case OpGte:
		return comparable && c >= 0
	case OpLte:
		return comparable && c <= 0
	}
	return false
}
