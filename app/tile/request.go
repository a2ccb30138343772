package tile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// FormatMVT is the only supported tile format.
const FormatMVT = "mvt"

// Params are the raw request parameters as delivered by the transport.
// An empty value means the parameter is missing.
type Params struct {
	Format string
	Z      string
	X      string
	Y      string
}

// Request is a validated tile request.
type Request struct {
	Tile   maptile.Tile
	Format string
}

// ParseRequest validates raw parameters. Parameters are checked in the order
// format, z, x, y, and the format value is checked only after all of them parse.
func ParseRequest(p Params) (Request, error) {
	if p.Format == "" {
		return Request{}, errMissingValue()
	}
	z, err := parseUint("z", p.Z)
	if err != nil {
		return Request{}, err
	}
	x, err := parseUint("x", p.X)
	if err != nil {
		return Request{}, err
	}
	y, err := parseUint("y", p.Y)
	if err != nil {
		return Request{}, err
	}

	if p.Format != FormatMVT {
		return Request{}, errUnsupportedFormat(p.Format)
	}

	return Request{Tile: maptile.New(x, y, maptile.Zoom(z)), Format: p.Format}, nil
}

// Key returns the cache key of the request.
func (r Request) Key() string {
	return Key(r.Tile, r.Format)
}

// Key builds the cache key "/{z}/{x}/{y}.{format}". Numbers never contain
// the separators, so distinct inputs can't produce the same key.
func Key(t maptile.Tile, format string) string {
	return fmt.Sprintf("/%d/%d/%d.%s", t.Z, t.X, t.Y, format)
}

// parseUint parses a base-10 uint32. One leading '+' is allowed, any other sign is not.
func parseUint(name, value string) (uint32, error) {
	if value == "" {
		return 0, errMissingValue()
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(value, "+"), 10, 32)
	if err != nil {
		return 0, errInvalidType(name)
	}
	return uint32(v), nil
}
