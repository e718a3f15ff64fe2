package query

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain/order"
	"github.com/kailas-cloud/searchgate/internal/logger"
)

// Service forwards query documents to the configured index.
type Service struct {
	store Searcher
	index string
}

// New creates a query service bound to a single index.
func New(store Searcher, index string) *Service {
	return &Service{store: store, index: index}
}

// Index returns the index every query runs against.
func (s *Service) Index() string { return s.index }

// Run passes q through to the backend and returns the matched rows.
// A backend with no matches yields an empty, non-nil slice.
func (s *Service) Run(ctx context.Context, q json.RawMessage) ([]order.Row, error) {
	ctx, log := logger.With(ctx, zap.String("index", s.index))

	rows, err := s.store.Search(ctx, s.index, q)
	if err != nil {
		log.Warn("query failed", zap.Error(err))
		return nil, fmt.Errorf("query %s: %w", s.index, err)
	}
	if rows == nil {
		rows = []order.Row{}
	}

	log.Debug("query done", zap.Int("rows", len(rows)))
	return rows, nil
}
