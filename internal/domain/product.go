package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidProductID = errors.New("invalid product id")
)

// Attributes holds the schema-defined fields of a product, keyed by JSON name.
// It is stored as a single JSONB column.
type Attributes map[string]interface{}

// Value implements driver.Valuer
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Numbers are kept as json.Number so integers
// survive the round trip unchanged.
func (a *Attributes) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*a = Attributes{}
		return nil
	default:
		return fmt.Errorf("unsupported attributes type %T", value)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	attrs := Attributes{}
	if err := dec.Decode(&attrs); err != nil {
		return fmt.Errorf("failed to decode attributes: %w", err)
	}
	*a = attrs
	return nil
}

// Product represents a product in the catalog
type Product struct {
	ID         int64
	Attributes Attributes
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MarshalJSON flattens the attributes next to the id and timestamps.
func (p Product) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Attributes)+3)
	for k, v := range p.Attributes {
		out[k] = v
	}
	out["id"] = p.ID
	out["created_at"] = p.CreatedAt
	out["updated_at"] = p.UpdatedAt
	return json.Marshal(out)
}
