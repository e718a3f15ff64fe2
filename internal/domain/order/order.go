// Package order defines the ecommerce order document returned by the search backend.
//
// Rows are decoded strictly: every field of the stored schema must be present,
// non-null and of the declared type. A row that does not match is rejected as a
// whole rather than returned partially populated.
package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// ErrMissingField signals a stored document lacking a field of the row schema.
var ErrMissingField = errors.New("missing field")

// Row is one matched document as returned in the search hits.
type Row struct {
	Source Source `json:"_source"`
}

// Source mirrors the stored order document.
type Source struct {
	Currency          string    `json:"currency"`
	CustomerFirstName string    `json:"customer_first_name"`
	CustomerFullName  string    `json:"customer_full_name"`
	CustomerGender    string    `json:"customer_gender"`
	CustomerID        int32     `json:"customer_id"`
	CustomerLastName  string    `json:"customer_last_name"`
	CustomerPhone     string    `json:"customer_phone"`
	DayOfWeek         string    `json:"day_of_week"`
	DayOfWeekI        uint8     `json:"day_of_week_i"`
	Email             string    `json:"email"`
	Manufacturer      []string  `json:"manufacturer"`
	OrderDate         time.Time `json:"order_date"`
	Category          []string  `json:"category"`
	OrderID           int32     `json:"order_id"`
	Products          []Product `json:"products"`
}

// Product is a single line item of an order.
type Product struct {
	BasePrice          float32   `json:"base_price"`
	DiscountPercentage float32   `json:"discount_percentage"`
	Quantity           uint8     `json:"quantity"`
	Manufacturer       string    `json:"manufacturer"`
	TaxAmount          float32   `json:"tax_amount"`
	ProductID          int32     `json:"product_id"`
	Category           string    `json:"category"`
	SKU                string    `json:"sku"`
	TaxlessPrice       float32   `json:"taxless_price"`
	UnitDiscountAmount uint8     `json:"unit_discount_amount"`
	MinPrice           float32   `json:"min_price"`
	ID                 string    `json:"_id"`
	DiscountAmount     float32   `json:"discount_amount"`
	CreatedOn          time.Time `json:"created_on"`
	ProductName        string    `json:"product_name"`
	Price              float32   `json:"price"`
	TaxfulPrice        float32   `json:"taxful_price"`
	BaseUnitPrice      float32   `json:"base_unit_price"`
}

// Aliases without methods, so decoding into them skips the strict UnmarshalJSON.
type (
	plainRow     Row
	plainSource  Source
	plainProduct Product
)

var (
	rowFields     = jsonKeys(reflect.TypeOf(plainRow{}))
	sourceFields  = jsonKeys(reflect.TypeOf(plainSource{}))
	productFields = jsonKeys(reflect.TypeOf(plainProduct{}))

	// sourceLists are the array fields of Source.
	sourceLists = []string{"manufacturer", "category", "products"}
)

// DecodeRow decodes a single search hit into a Row.
func DecodeRow(data []byte) (Row, error) {
	var r Row
	if err := json.Unmarshal(data, &r); err != nil {
		return Row{}, fmt.Errorf("decode row: %w", err)
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Row) UnmarshalJSON(data []byte) error {
	if _, err := requireFields(data, rowFields); err != nil {
		return fmt.Errorf("hit: %w", err)
	}
	return json.Unmarshal(data, (*plainRow)(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Source) UnmarshalJSON(data []byte) error {
	obj, err := requireFields(data, sourceFields)
	if err != nil {
		return fmt.Errorf("_source: %w", err)
	}
	if err := requireElements(obj, sourceLists...); err != nil {
		return fmt.Errorf("_source: %w", err)
	}
	if err := json.Unmarshal(data, (*plainSource)(s)); err != nil {
		return err //nolint:wrapcheck // decoder error already names the field
	}
	s.OrderDate = s.OrderDate.UTC()
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Product) UnmarshalJSON(data []byte) error {
	if _, err := requireFields(data, productFields); err != nil {
		return fmt.Errorf("product: %w", err)
	}
	if err := json.Unmarshal(data, (*plainProduct)(p)); err != nil {
		return err //nolint:wrapcheck // decoder error already names the field
	}
	p.CreatedOn = p.CreatedOn.UTC()
	return nil
}

// requireFields checks that data is a JSON object holding a non-null value for every key.
func requireFields(data []byte, keys []string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: expected an object, got null", ErrMissingField)
	}

	var missing []string
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || isNull(v) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return obj, nil
}

// requireElements rejects null elements in the array fields named by keys.
// encoding/json would otherwise decode them as zero values.
func requireElements(obj map[string]json.RawMessage, keys ...string) error {
	for _, k := range keys {
		var elems []json.RawMessage
		if err := json.Unmarshal(obj[k], &elems); err != nil {
			continue // not an array: the typed decode reports it
		}
		for i, e := range elems {
			if isNull(e) {
				return fmt.Errorf("%w: %s[%d] is null", ErrMissingField, k, i)
			}
		}
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func jsonKeys(t reflect.Type) []string {
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys
}
