package query

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/searchgate/internal/domain/order"
)

// Searcher runs a query document against a search index.
type Searcher interface {
	Search(ctx context.Context, index string, query json.RawMessage) ([]order.Row, error)
}
