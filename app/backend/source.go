// Package backend provides tile generation backed by PostGIS or an MBTiles file.
package backend

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // postgresql driver
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb/maptile"
	_ "modernc.org/sqlite" // sqlite driver
)

// ErrNoTile is returned when the backend has no data for the requested tile.
var ErrNoTile = errors.New("no tile data")

// DBType is the kind of database the tiles come from.
type DBType int

// supported database types
const (
	DBTypeMBTiles DBType = iota
	DBTypePostgres
)

// Source generates vector tiles from PostGIS or reads them from an MBTiles file.
type Source struct {
	db     *sqlx.DB
	dbType DBType
	query  string
	layer  Layer
}

// Opts are optional connection settings.
type Opts struct {
	MaxConns int // max open connections for postgres, 0 keeps the driver default
}

// New makes a Source for the given database URL. The type is detected from the URL:
// - postgres:// or postgresql:// -> PostGIS, tiles rendered from layer
// - everything else -> path to an MBTiles file, layer is ignored
func New(ctx context.Context, dbURL string, layer Layer, opts Opts) (*Source, error) {
	dbType := detectDBType(dbURL)

	var db *sqlx.DB
	var query string
	var err error

	switch dbType {
	case DBTypePostgres:
		if db, err = connectPostgres(ctx, dbURL, opts); err != nil {
			return nil, err
		}
		if query, err = postgisQuery(layer); err != nil {
			_ = db.Close()
			return nil, err
		}
	default:
		if db, err = connectMBTiles(ctx, dbURL); err != nil {
			return nil, err
		}
		query = mbtilesQuery
	}

	s := &Source{db: db, dbType: dbType, query: query, layer: layer}
	if err := s.checkSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if dbType == DBTypePostgres {
		log.Printf("[INFO] rendering %s", layer)
	}
	log.Printf("[DEBUG] initialized %s tile source", s.dbTypeName())
	return s, nil
}

// detectDBType determines database type from URL.
func detectDBType(url string) DBType {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DBTypePostgres
	}
	return DBTypeMBTiles
}

// connectPostgres establishes PostgreSQL connection.
func connectPostgres(ctx context.Context, dbURL string, opts Opts) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
		db.SetMaxIdleConns(opts.MaxConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// connectMBTiles opens the MBTiles file, it is never written.
func connectMBTiles(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open mbtiles %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set pragma: %w", err)
	}
	return db, nil
}

// checkSchema makes sure the database can serve tiles before accepting requests.
func (s *Source) checkSchema(ctx context.Context) error {
	switch s.dbType {
	case DBTypePostgres:
		var version string
		if err := s.db.GetContext(ctx, &version, "SELECT postgis_lib_version()"); err != nil {
			return fmt.Errorf("postgis is not available: %w", err)
		}
		log.Printf("[INFO] postgis %s", version)
	default:
		var count int
		err := s.db.GetContext(ctx, &count, "SELECT count(*) FROM sqlite_master WHERE name = 'tiles' AND type IN ('table', 'view')")
		if err != nil {
			return fmt.Errorf("failed to read mbtiles schema: %w", err)
		}
		if count == 0 {
			return errors.New("mbtiles has no tiles table")
		}
	}
	return nil
}

// Generate returns the encoded vector tile for t.
func (s *Source) Generate(ctx context.Context, t maptile.Tile) ([]byte, error) {
	switch s.dbType {
	case DBTypePostgres:
		return s.renderPostgis(ctx, t)
	default:
		return s.readMBTiles(ctx, t)
	}
}

// Close closes the database connection.
func (s *Source) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// dbTypeName returns human-readable database type name.
func (s *Source) dbTypeName() string {
	switch s.dbType {
	case DBTypePostgres:
		return "postgis"
	default:
		return "mbtiles"
	}
}

// postgisQuery builds the ST_AsMVT query for the layer. Values are bound as parameters:
// $1 zoom, $2 column, $3 row, $4 layer name, $5 extent, $6 buffer.
// Filter is inserted as is, it comes from the admin-controlled layer file.
func postgisQuery(layer Layer) (string, error) {
	if layer.Table == "" {
		return "", errors.New("layer table is required")
	}
	if layer.Geometry == "" {
		return "", errors.New("layer geometry column is required")
	}

	geom := "t." + pgx.Identifier{layer.Geometry}.Sanitize()
	cols := make([]string, 0, len(layer.Columns))
	for _, c := range layer.Columns {
		cols = append(cols, "t."+pgx.Identifier{c}.Sanitize())
	}
	selectCols := ""
	if len(cols) > 0 {
		selectCols = ", " + strings.Join(cols, ", ")
	}
	where := fmt.Sprintf("ST_Transform(%s, 3857) && bounds.geom", geom)
	if f := strings.TrimSpace(layer.Filter); f != "" {
		where += " AND (" + f + ")"
	}

	return fmt.Sprintf(`
		WITH bounds AS (
			SELECT ST_TileEnvelope($1, $2, $3) AS geom
		),
		mvtgeom AS (
			SELECT ST_AsMVTGeom(ST_Transform(%s, 3857), bounds.geom, $5, $6) AS geom%s
			FROM %s t, bounds
			WHERE %s
		)
		SELECT ST_AsMVT(mvtgeom.*, $4, $5, 'geom') FROM mvtgeom`,
		geom, selectCols, pgx.Identifier(strings.Split(layer.Table, ".")).Sanitize(), where), nil
}

// renderPostgis runs the layer query. ST_AsMVT aggregates to a single row, NULL means an empty tile.
func (s *Source) renderPostgis(ctx context.Context, t maptile.Tile) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, s.query, int64(t.Z), int64(t.X), int64(t.Y), s.layer.Name, s.layer.Extent, s.layer.Buffer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoTile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

const mbtilesQuery = "SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?"

// readMBTiles reads a stored tile. MBTiles rows are in TMS order, counted from the bottom.
// Gzipped tiles are decompressed so callers always get raw MVT.
func (s *Source) readMBTiles(ctx context.Context, t maptile.Tile) ([]byte, error) {
	if t.Z > 31 {
		return nil, fmt.Errorf("zoom %d out of range: %w", t.Z, ErrNoTile)
	}
	if uint64(t.Y) >= uint64(1)<<t.Z {
		return nil, fmt.Errorf("row %d out of range for zoom %d: %w", t.Y, t.Z, ErrNoTile)
	}
	row := uint64(1)<<t.Z - 1 - uint64(t.Y)

	var data []byte
	err := s.db.GetContext(ctx, &data, s.query, int64(t.Z), int64(t.X), int64(row))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tile %d/%d/%d: %w", t.Z, t.X, t.Y, ErrNoTile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return gunzip(data)
}

// gunzip decompresses data if it starts with the gzip magic bytes.
func gunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzipped tile: %w", err)
	}
	defer zr.Close()
	res, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress tile: %w", err)
	}
	return res, nil
}
