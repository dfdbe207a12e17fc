// Package routes holds the dashboard's page-route table.
package routes

import (
	"net/url"
	"strings"
)

// View names.
const (
	Home                = "Home"
	FactorInfo          = "FactorInfo"
	FactorStats         = "FactorStats"
	FactorPerformance   = "FactorPerformance"
	StrategyInfo        = "StrategyInfo"
	StrategyPerformance = "StrategyPerformance"
	NotFound            = "NotFound"
)

// CatchAllParam receives the unmatched path segments of the fallback route.
const CatchAllParam = "pathMatch"

// Route maps a path pattern to a view. Segments starting with ':' bind a
// parameter; a final "*name" segment binds the remainder of the path.
type Route struct {
	Path string
	Name string
}

// Match is the result of resolving a path.
type Match struct {
	Route  Route
	Params map[string]string
}

// Table resolves paths against routes in declaration order.
type Table struct {
	routes []compiled
}

type compiled struct {
	route    Route
	segments []string
}

// Default is the dashboard's route table.
var Default = New([]Route{
	{Path: "/", Name: Home},
	{Path: "/factor", Name: FactorInfo},
	{Path: "/factor/stats", Name: FactorStats},
	{Path: "/factor/:factorName", Name: FactorPerformance},
	{Path: "/strategy", Name: StrategyInfo},
	{Path: "/strategy/:strategyName", Name: StrategyPerformance},
	{Path: "/*" + CatchAllParam, Name: NotFound},
})

// New compiles routes. The first matching route wins.
func New(routes []Route) *Table {
	t := &Table{routes: make([]compiled, 0, len(routes))}
	for _, r := range routes {
		t.routes = append(t.routes, compiled{route: r, segments: split(r.Path)})
	}
	return t
}

// Routes returns the routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, c := range t.routes {
		out[i] = c.route
	}
	return out
}

// Resolve returns the first route matching path. path is the escaped form
// (as in a request URI); each segment is unescaped exactly once. Static
// segments match case-insensitively. ok is false only when the table has no
// catch-all and nothing matched.
func (t *Table) Resolve(path string) (Match, bool) {
	segs := split(path)
	for _, c := range t.routes {
		if params, ok := c.match(segs); ok {
			return Match{Route: c.route, Params: params}, true
		}
	}
	return Match{}, false
}

func (c compiled) match(segs []string) (map[string]string, bool) {
	params := map[string]string{}
	for i, pat := range c.segments {
		if strings.HasPrefix(pat, "*") {
			params[pat[1:]] = strings.Join(unescapeAll(segs[i:]), "/")
			return params, true
		}
		if i >= len(segs) {
			return nil, false
		}
		v := unescape(segs[i])
		if strings.HasPrefix(pat, ":") {
			if v == "" {
				return nil, false
			}
			params[pat[1:]] = v
			continue
		}
		if !strings.EqualFold(pat, v) {
			return nil, false
		}
	}
	if len(segs) != len(c.segments) {
		return nil, false
	}
	return params, true
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// unescape keeps a segment with a malformed escape as given.
func unescape(seg string) string {
	if v, err := url.PathUnescape(seg); err == nil {
		return v
	}
	return seg
}

func unescapeAll(segs []string) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = unescape(s)
	}
	return out
}
