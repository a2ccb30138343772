//go:build e2e

package e2e

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transect/tileserver/lib/tiles"
)

func newClient(t *testing.T) *tiles.Client {
	t.Helper()
	c, err := tiles.New(baseURL, tiles.WithRetry(0, 0))
	require.NoError(t, err)
	return c
}

func TestTiles_Fetch(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	tbl := []struct {
		z, x, y int
		want    string
	}{
		{0, 0, 0, "world"},
		{1, 0, 0, "north-west"},
		{1, 1, 0, "north-east"},
		{1, 0, 1, "south-west"},
	}
	for _, tt := range tbl {
		data, err := c.Tile(ctx, tt.z, tt.x, tt.y)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data))
	}
}

func TestTiles_RepeatedRequestServedFromCache(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	first, err := c.Tile(ctx, 0, 0, 0)
	require.NoError(t, err)
	before, err := c.Stats(ctx)
	require.NoError(t, err)

	second, err := c.Tile(ctx, 0, 0, 0)
	require.NoError(t, err)
	after, err := c.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before.BackendCalls, after.BackendCalls)
	assert.Equal(t, before.Hits+1, after.Hits)
	assert.Equal(t, before.Keys, after.Keys)
}

func TestTiles_Errors(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	t.Run("negative column", func(t *testing.T) {
		_, err := c.Tile(ctx, 1, -1, 0)
		require.ErrorIs(t, err, tiles.ErrInvalidInput)
		var re *tiles.ResponseError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusBadRequest, re.StatusCode)
		assert.Equal(t, "Invalid Value Type", re.Title)
		assert.Equal(t, "The value for 'x' is of the incorrect type.", re.Detail)
	})

	t.Run("tile not in file", func(t *testing.T) {
		_, err := c.Tile(ctx, 5, 3, 2)
		require.ErrorIs(t, err, tiles.ErrBackend)
		var re *tiles.ResponseError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
		assert.Empty(t, re.Title)
		assert.Equal(t, "An unexpected error occurred.", re.Detail)
	})

	t.Run("unsupported format", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/0/0/0.png")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"title":null,"detail":"The format 'png' is not supported.","code":"InvalidInput"}`, string(body))
	})

	t.Run("missing format", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/0/0/0")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"title":"Missing Value","detail":"A required input parameter is missing.","code":"InvalidInput"}`, string(body))
	})
}

func TestTiles_Concurrent(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := c.Tile(ctx, 1, 1, 0)
			assert.NoError(t, err)
			assert.Equal(t, "north-east", string(data))
		}()
	}
	wg.Wait()
}

func TestPing(t *testing.T) {
	require.NoError(t, newClient(t).Ping(context.Background()))
}
