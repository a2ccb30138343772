package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/transect/tileserver/app/enum"
	"github.com/transect/tileserver/app/tile"
)

func TestSource_Postgis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	t.Log("starting postgis container...")
	dbURL := startPostgis(ctx, t)
	t.Log("postgis container started")

	db, err := sqlx.ConnectContext(ctx, "pgx", dbURL)
	require.NoError(t, err)
	defer db.Close()
	for _, q := range []string{
		"CREATE TABLE projects (_id serial PRIMARY KEY, geometry geometry(Point, 4326), deleted_at timestamptz)",
		"INSERT INTO projects (geometry) VALUES (ST_SetSRID(ST_MakePoint(10, 20), 4326))",
		"INSERT INTO projects (geometry, deleted_at) VALUES (ST_SetSRID(ST_MakePoint(-30, -40), 4326), now())",
	} {
		_, err = db.ExecContext(ctx, q)
		require.NoError(t, err)
	}

	src, err := New(ctx, dbURL, DefaultLayer(), Opts{MaxConns: 2})
	require.NoError(t, err)
	defer src.Close()

	t.Run("world tile has only live rows", func(t *testing.T) {
		data, err := src.Generate(ctx, maptile.New(0, 0, 0))
		require.NoError(t, err)
		require.NotEmpty(t, data)

		layers, err := mvt.Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Equal(t, "default", layers[0].Name)
		assert.Equal(t, uint32(4096), layers[0].Extent)
		require.Len(t, layers[0].Features, 1)
		assert.Contains(t, layers[0].Features[0].Properties, "_id")
	})

	t.Run("tile with a deleted row only is empty", func(t *testing.T) {
		data, err := src.Generate(ctx, maptile.New(0, 1, 1))
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("tile without rows is empty", func(t *testing.T) {
		data, err := src.Generate(ctx, maptile.New(0, 0, 1))
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("live row is in its tile", func(t *testing.T) {
		data, err := src.Generate(ctx, maptile.New(1, 0, 1))
		require.NoError(t, err)
		layers, err := mvt.Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Len(t, layers[0].Features, 1)
	})

	t.Run("layer without filter includes deleted rows", func(t *testing.T) {
		layer := DefaultLayer()
		layer.Name = "all"
		layer.Filter = ""
		layer.Buffer = 0
		all, err := New(ctx, dbURL, layer, Opts{MaxConns: 1})
		require.NoError(t, err)
		defer all.Close()

		data, err := all.Generate(ctx, maptile.New(0, 0, 0))
		require.NoError(t, err)
		layers, err := mvt.Unmarshal(data)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Equal(t, "all", layers[0].Name)
		assert.Len(t, layers[0].Features, 2)
	})

	t.Run("query failure is a db error for callers", func(t *testing.T) {
		layer := DefaultLayer()
		layer.Table = "no_such_table"
		broken, err := New(ctx, dbURL, layer, Opts{MaxConns: 1})
		require.NoError(t, err)
		defer broken.Close()

		_, err = broken.Generate(ctx, maptile.New(0, 0, 0))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNoTile))
		assert.Contains(t, err.Error(), "failed to render tile 0/0/0")

		svc := tile.NewService(tile.NewMemCache(), broken, tile.Config{})
		_, err = svc.Tile(ctx, tile.Params{Format: "mvt", Z: "0", X: "0", Y: "0"})
		var te *tile.Error
		require.ErrorAs(t, err, &te)
		assert.Equal(t, enum.ErrorCodeDBError, te.Code)
		assert.Equal(t, tile.GenericDetail, te.Detail)
		assert.NotContains(t, te.Error(), "no_such_table")
		assert.Equal(t, http.StatusInternalServerError, tile.StatusCode(err))
		assert.Equal(t, 0, svc.Stats().Keys, "failed tile is not cached")
	})
}

// startPostgis runs a postgis container and returns its connection url.
// The container is terminated when the test ends.
func startPostgis(ctx context.Context, t *testing.T) string {
	t.Helper()
	const (
		user     = "postgres"
		password = "secret"
		dbName   = "tiles_test"
	)

	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:17-3.5",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": password,
			"POSTGRES_DB":       dbName,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", user, password, host, port.Int(), dbName)
}
