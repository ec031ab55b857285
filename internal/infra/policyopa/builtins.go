package policyopa

import "github.com/open-policy-agent/opa/ast"

// Routing policies are pure functions over the verdict projection, so
// only data-shaping builtins are available to them.
var allowedBuiltins = map[string]struct{}{
	"abs":          {},
	"ceil":         {},
	"concat":       {},
	"contains":     {},
	"count":        {},
	"eq":           {},
	"equal":        {},
	"endswith":     {},
	"floor":        {},
	"format_int":   {},
	"json.marshal": {},
	"lower":        {},
	"max":          {},
	"min":          {},
	"neq":          {},
	"object.get":   {},
	"object.union": {},
	"replace":      {},
	"round":        {},
	"sort":         {},
	"split":        {},
	"sprintf":      {},
	"startswith":   {},
	"substring":    {},
	"sum":          {},
	"trim":         {},
	"upper":        {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
