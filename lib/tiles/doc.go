// Package tiles provides a Go client for the vector tile server.
//
// Basic usage:
//
//	client, err := tiles.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// fetch an encoded mapbox vector tile
//	data, err := client.Tile(ctx, 5, 3, 2)
//
//	// server side cache and backend counters
//	stats, err := client.Stats(ctx)
//
// Failed requests return *ResponseError carrying the server's title, detail and code.
// Use errors.Is with ErrInvalidInput or ErrBackend to check the kind:
//
//	if errors.Is(err, tiles.ErrInvalidInput) {
//	    // bad coordinates
//	}
//
// With custom options:
//
//	client, err := tiles.New("http://localhost:8080",
//	    tiles.WithTimeout(10*time.Second),
//	    tiles.WithRetry(5, 200*time.Millisecond),
//	)
package tiles
