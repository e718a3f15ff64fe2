// Package searchgate is a Go client for the searchgate HTTP gateway.
//
//	client, _ := searchgate.New("http://localhost:3000",
//	    searchgate.WithTimeout(5*time.Second),
//	)
//	rows, err := client.Query(ctx, map[string]any{
//	    "query": map[string]any{"match": map[string]any{"customer_first_name": "Eddie"}},
//	})
//
// Query documents are sent as-is; rows come back in backend order.
package searchgate
