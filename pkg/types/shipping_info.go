package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ShippingInfo is the delivery data submitted with an order. Every field is required.
type ShippingInfo struct {
	Street      string `json:"street" validate:"required,notblank"`
	City        string `json:"city" validate:"required,notblank"`
	State       string `json:"state" validate:"required,notblank"`
	ZipCode     string `json:"zipCode" validate:"required,notblank"`
	Country     string `json:"country" validate:"required,notblank"`
	PhoneNumber string `json:"phoneNumber" validate:"required,notblank"`
}

// Value serializes the shipping info to JSON.
func (s ShippingInfo) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a JSON column into the shipping info struct.
func (s *ShippingInfo) Scan(value interface{}) error {
	if value == nil {
		*s = ShippingInfo{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return fmt.Errorf("shipping info: %w", err)
	}
	return json.Unmarshal(raw, s)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
