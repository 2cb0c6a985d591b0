// Package api assembles the mirror's listeners: which paths each one
// recognizes, which asset each path serves, and the chi router around it.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/zigmirror/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/zigmirror/internal/api/middleware"
	"github.com/matiasleandrokruk/zigmirror/internal/api/route"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/assets"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/config"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/telemetry"
)

// Layout selects how the two tools are spread over listeners.
type Layout string

const (
	// LayoutUnified serves zig and zls from one listener.
	LayoutUnified Layout = "unified"
	// LayoutSplit serves zig and zls from separate listeners.
	LayoutSplit Layout = "split"
)

// ParseLayout converts a layout name.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(s); l {
	case LayoutUnified, LayoutSplit:
		return l, nil
	default:
		return "", fmt.Errorf("%w %q (want %q or %q)", ErrUnknownLayout, s, LayoutUnified, LayoutSplit)
	}
}

// Fallback bodies per layout.
const (
	unifiedFallbackBody = "ok"
	splitFallbackBody   = "Bad Request"
)

// Deps are the shared collaborators handed to every listener.
type Deps struct {
	Logger  *zap.Logger
	Metrics *telemetry.Metrics
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Listener describes one independently served port.
type Listener struct {
	Name           string
	Port           int
	Table          *route.Table
	FallbackStatus int
	FallbackBody   string
}

// Catalog returns the four assets named by cfg.
func Catalog(cfg config.Config) (zigIndex, zigArtifact, zlsIndex, zlsArtifact assets.Asset) {
	return assets.Asset{Name: "zig-index", Path: cfg.ZigIndex},
		assets.Asset{Name: "zig-artifact", Path: cfg.ZigArtifact},
		assets.Asset{Name: "zls-index", Path: cfg.ZlsIndex},
		assets.Asset{Name: "zls-artifact", Path: cfg.ZlsArtifact}
}

// Listeners builds the listeners for layout.
func Listeners(layout Layout, cfg config.Config, deps Deps) ([]Listener, error) {
	switch layout {
	case LayoutUnified:
		return UnifiedListeners(cfg, deps)
	case LayoutSplit:
		return SplitListeners(cfg, deps)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownLayout, layout)
	}
}

// UnifiedListeners returns the single listener that multiplexes both tools.
// Only the four exact paths are recognized; everything else, sub-paths
// included, gets 200 "ok".
func UnifiedListeners(cfg config.Config, deps Deps) ([]Listener, error) {
	zigIndex, zigArtifact, zlsIndex, zlsArtifact := Catalog(cfg)
	h := newAssetHandler(cfg, deps, "unified")

	l, err := newListener("unified", cfg.UnifiedPort, http.StatusOK, unifiedFallbackBody,
		route.Route{Name: zigIndex.Name, Kind: route.Exact, Path: "/zig/index.json", Handler: h.Index(zigIndex)},
		route.Route{Name: zigArtifact.Name, Kind: route.Exact, Path: "/zig", Handler: h.Artifact(zigArtifact)},
		route.Route{Name: zlsIndex.Name, Kind: route.Exact, Path: "/zls/index.json", Handler: h.Index(zlsIndex)},
		route.Route{Name: zlsArtifact.Name, Kind: route.Exact, Path: "/zls", Handler: h.Artifact(zlsArtifact)},
	)
	if err != nil {
		return nil, err
	}
	return []Listener{l}, nil
}

// SplitListeners returns one listener per tool. Unrecognized paths get 400.
func SplitListeners(cfg config.Config, deps Deps) ([]Listener, error) {
	zigIndex, zigArtifact, zlsIndex, zlsArtifact := Catalog(cfg)

	zh := newAssetHandler(cfg, deps, "zig")
	zig, err := newListener("zig", cfg.ZigPort, http.StatusBadRequest, splitFallbackBody,
		route.Route{Name: zigIndex.Name, Kind: route.Exact, Path: "/download/index.json", Handler: zh.Index(zigIndex)},
		route.Route{Name: zigArtifact.Name, Kind: route.Prefix, Path: "/builds/", Handler: zh.Artifact(zigArtifact)},
	)
	if err != nil {
		return nil, err
	}

	// "/zls/index.json" also has the "/zls/" prefix; the exact route wins.
	lh := newAssetHandler(cfg, deps, "zls")
	zls, err := newListener("zls", cfg.ZlsPort, http.StatusBadRequest, splitFallbackBody,
		route.Route{Name: zlsIndex.Name, Kind: route.Exact, Path: "/zls/index.json", Handler: lh.Index(zlsIndex)},
		route.Route{Name: zlsArtifact.Name, Kind: route.Prefix, Path: "/zls/", Handler: lh.Artifact(zlsArtifact)},
	)
	if err != nil {
		return nil, err
	}

	return []Listener{zig, zls}, nil
}

func newAssetHandler(cfg config.Config, deps Deps, listener string) *handlers.AssetHandler {
	return handlers.NewAssetHandler(
		assets.NewStore(cfg.AssetDir),
		cfg.OnReadError,
		deps.logger().Named(listener),
		deps.Metrics,
	)
}

func newListener(name string, port, fallbackStatus int, fallbackBody string, routes ...route.Route) (Listener, error) {
	table, err := route.NewTable(handlers.Fallback(fallbackStatus, fallbackBody), routes...)
	if err != nil {
		return Listener{}, fmt.Errorf("listener %s: %w", name, err)
	}
	return Listener{
		Name:           name,
		Port:           port,
		Table:          table,
		FallbackStatus: fallbackStatus,
		FallbackBody:   fallbackBody,
	}, nil
}

// NewRouter wraps a listener's route table in a chi router with the shared
// middleware stack.
func NewRouter(l Listener, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.RequestLogger(l.Name, deps.logger().Named(l.Name), deps.Metrics))
	// Recoverer turns handler bugs into 500s but re-panics http.ErrAbortHandler,
	// which the abort read-error policy relies on.
	r.Use(middleware.Recoverer)

	l.Table.Mount(r)
	return r
}
