package domain

import (
	"fmt"
	"strings"
)

// FieldType is the scalar type of a product attribute
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
)

// reservedFields are owned by storage and never part of the attribute set
var reservedFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// IsReservedField reports whether name is a storage-managed field
func IsReservedField(name string) bool {
	return reservedFields[name]
}

// FieldSpec describes one product attribute
type FieldSpec struct {
	Name     string    `mapstructure:"name"`
	Type     FieldType `mapstructure:"type"`
	Required bool      `mapstructure:"required"`
	// Rules is a validator tag applied to non-null values, e.g. "min=1,max=255"
	Rules string `mapstructure:"rules"`
}

// ProductSchema is the configured set of product attributes
type ProductSchema struct {
	Fields []FieldSpec `mapstructure:"fields"`
}

// DefaultProductSchema is used when no schema file is configured
func DefaultProductSchema() ProductSchema {
	return ProductSchema{
		Fields: []FieldSpec{
			{Name: "name", Type: FieldTypeString, Required: true, Rules: "min=1,max=255"},
			{Name: "description", Type: FieldTypeString, Rules: "max=2000"},
			{Name: "price", Type: FieldTypeNumber, Rules: "gte=0"},
			{Name: "stock", Type: FieldTypeInteger, Rules: "gte=0"},
		},
	}
}

// Field returns the definition of the named field
func (s ProductSchema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks the schema definition itself
func (s ProductSchema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("product schema has no fields")
	}

	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		name := f.Name
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if strings.TrimSpace(name) != name {
			return fmt.Errorf("field %q has leading or trailing whitespace", name)
		}
		if IsReservedField(name) {
			return fmt.Errorf("field %q is reserved", name)
		}
		if seen[name] {
			return fmt.Errorf("field %q is declared twice", name)
		}
		seen[name] = true

		switch f.Type {
		case FieldTypeString, FieldTypeNumber, FieldTypeInteger, FieldTypeBoolean:
		default:
			return fmt.Errorf("field %q has unsupported type %q", name, f.Type)
		}
	}

	return nil
}
