// Package ordertest provides stored order documents and backend responses for tests.
package ordertest

import (
	"fmt"
	"strings"
)

// SourceJSON is a complete stored order document.
const SourceJSON = `{
	"currency": "EUR",
	"customer_first_name": "Eddie",
	"customer_full_name": "Eddie Underwood",
	"customer_gender": "MALE",
	"customer_id": 38,
	"customer_last_name": "Underwood",
	"customer_phone": "",
	"day_of_week": "Monday",
	"day_of_week_i": 0,
	"email": "eddie@underwood-family.zzz",
	"manufacturer": ["Elitelligence", "Oceanavigations"],
	"order_date": "2016-12-26T09:28:48+00:00",
	"category": ["Men's Clothing"],
	"order_id": 584677,
	"products": [
		{
			"base_price": 11.99,
			"discount_percentage": 0,
			"quantity": 1,
			"manufacturer": "Elitelligence",
			"tax_amount": 0,
			"product_id": 6283,
			"category": "Men's Clothing",
			"sku": "ZO0549605496",
			"taxless_price": 11.99,
			"unit_discount_amount": 0,
			"min_price": 6.35,
			"_id": "sold_product_584677_6283",
			"discount_amount": 0,
			"created_on": "2016-12-26T09:28:48+00:00",
			"product_name": "Basic T-shirt - dark blue/white",
			"price": 11.99,
			"taxful_price": 11.99,
			"base_unit_price": 11.99
		}
	]
}`

// Hit wraps a _source document in a search hit envelope.
func Hit(id, source string) string {
	return fmt.Sprintf(`{"_index":"ecommerce","_id":%q,"_score":1.0,"_source":%s}`, id, source)
}

// SearchResponse builds a _search response body holding the given hits.
func SearchResponse(hits ...string) string {
	return fmt.Sprintf(
		`{"took":3,"timed_out":false,"hits":{"total":{"value":%d,"relation":"eq"},"max_score":1.0,"hits":[%s]}}`,
		len(hits), strings.Join(hits, ","),
	)
}
