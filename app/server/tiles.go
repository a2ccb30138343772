package server

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"github.com/transect/tileserver/app/enum"
	"github.com/transect/tileserver/app/tile"
)

const contentTypeMVT = "application/vnd.mapbox-vector-tile"

// errorBody is the JSON error response. Absent fields are rendered as null.
type errorBody struct {
	Title  *string         `json:"title"`
	Detail *string         `json:"detail"`
	Code   *enum.ErrorCode `json:"code"`
}

// handleTile serves GET /{z}/{x}/{y}.{format}
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	y, format := splitTileName(r.PathValue("tile"))
	p := tile.Params{Format: format, Z: r.PathValue("z"), X: r.PathValue("x"), Y: y}

	data, err := s.Tiles.Tile(r.Context(), p)
	if err != nil {
		log.Printf("[DEBUG] tile request %s failed: %v", r.URL.Path, err)
		renderError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeMVT)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[WARN] failed to write tile %s: %v", r.URL.Path, err)
	}
}

// handleStats returns cache size and pipeline counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	rest.RenderJSON(w, s.Tiles.Stats())
}

// splitTileName splits "{y}.{format}" on the last dot. Without a dot the format is empty.
func splitTileName(name string) (y, format string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// renderError writes the error as JSON with the status mapped from its code.
// Anything that is not a *tile.Error is reported as a generic server error.
func renderError(w http.ResponseWriter, err error) {
	body := errorBody{}
	var te *tile.Error
	if errors.As(err, &te) {
		if te.Title != "" {
			body.Title = &te.Title
		}
		if te.Detail != "" {
			body.Detail = &te.Detail
		}
		if !te.Code.IsZero() {
			body.Code = &te.Code
		}
	} else {
		detail := tile.GenericDetail
		body.Detail = &detail
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(tile.StatusCode(err))
	rest.RenderJSON(w, body)
}
