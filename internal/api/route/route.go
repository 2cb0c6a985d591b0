// Package route holds the mirror's ordered route tables.
//
// A Table maps request paths to handlers by exact match or by path prefix.
// Exact routes always take precedence over prefix routes, and among prefix
// routes the longest prefix wins. That ordering is what lets "/zls/index.json"
// answer with the index while every other "/zls/..." path gets the artifact.
// Paths that match nothing go to the table's fallback handler.
package route

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ErrInvalidRoute is returned by NewTable for a malformed route set.
var ErrInvalidRoute = errors.New("invalid route")

// Kind says how a route's Path is compared against a request path.
type Kind int

const (
	// Exact matches only when the request path equals Path.
	Exact Kind = iota
	// Prefix matches any request path starting with Path (which ends in "/").
	Prefix
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Route is a single entry in a Table.
type Route struct {
	Name    string
	Kind    Kind
	Path    string
	Handler http.Handler
}

// Pattern returns the chi pattern for r.
func (r Route) Pattern() string {
	if r.Kind == Prefix {
		return r.Path + "*"
	}
	return r.Path
}

func (r Route) matches(path string) bool {
	if r.Kind == Prefix {
		return strings.HasPrefix(path, r.Path)
	}
	return path == r.Path
}

// Table is an immutable, ordered set of routes plus a fallback.
type Table struct {
	routes   []Route
	fallback http.Handler
}

// NewTable validates routes and orders them for lookup: exact routes first in
// declaration order, then prefix routes from longest to shortest prefix.
func NewTable(fallback http.Handler, routes ...Route) (*Table, error) {
	if fallback == nil {
		return nil, fmt.Errorf("%w: nil fallback handler", ErrInvalidRoute)
	}

	seen := make(map[string]string, len(routes))
	ordered := make([]Route, 0, len(routes))
	for _, r := range routes {
		if err := validate(r); err != nil {
			return nil, err
		}
		if prev, dup := seen[r.Pattern()]; dup {
			return nil, fmt.Errorf("%w: %q and %q both claim %s", ErrInvalidRoute, prev, r.Name, r.Pattern())
		}
		seen[r.Pattern()] = r.Name
		ordered = append(ordered, r)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Kind != b.Kind {
			return a.Kind == Exact
		}
		if a.Kind == Prefix {
			return len(a.Path) > len(b.Path)
		}
		return false
	})

	return &Table{routes: ordered, fallback: fallback}, nil
}

func validate(r Route) error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: route for %q has no name", ErrInvalidRoute, r.Path)
	case r.Handler == nil:
		return fmt.Errorf("%w: %s has no handler", ErrInvalidRoute, r.Name)
	case !strings.HasPrefix(r.Path, "/"):
		return fmt.Errorf("%w: %s path %q must start with /", ErrInvalidRoute, r.Name, r.Path)
	case strings.ContainsAny(r.Path, "*{}"):
		// chi would read these as wildcards or URL params.
		return fmt.Errorf("%w: %s path %q contains pattern characters", ErrInvalidRoute, r.Name, r.Path)
	}

	switch r.Kind {
	case Exact:
	case Prefix:
		if !strings.HasSuffix(r.Path, "/") {
			return fmt.Errorf("%w: %s prefix %q must end with /", ErrInvalidRoute, r.Name, r.Path)
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %v", ErrInvalidRoute, r.Name, r.Kind)
	}
	return nil
}

// Routes returns the routes in lookup order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Fallback returns the handler used when no route matches.
func (t *Table) Fallback() http.Handler {
	return t.fallback
}

// Lookup returns the route that serves path.
func (t *Table) Lookup(path string) (Route, bool) {
	for _, r := range t.routes {
		if r.matches(path) {
			return r, true
		}
	}
	return Route{}, false
}

// ServeHTTP dispatches the request without a router.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if route, ok := t.Lookup(r.URL.Path); ok {
		route.Handler.ServeHTTP(w, r)
		return
	}
	t.fallback.ServeHTTP(w, r)
}

// Mount registers every route on r for all HTTP methods and installs the
// fallback for unmatched paths and methods. Middlewares must already be set
// on r.
func (t *Table) Mount(r chi.Router) {
	for _, route := range t.routes {
		r.Handle(route.Pattern(), route.Handler)
	}
	r.NotFound(t.fallback.ServeHTTP)
	r.MethodNotAllowed(t.fallback.ServeHTTP)
}
