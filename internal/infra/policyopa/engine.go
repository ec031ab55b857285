package policyopa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"trustfuse/internal/domain"
	"trustfuse/internal/usecase"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.trustfuse.routing.result"

// Engine evaluates the review-routing policy bundle. The bundle is
// compiled once at startup against a restricted builtin set, so a
// policy cannot reach the network, the clock, or randomness and every
// evaluation stays reproducible.
type Engine struct {
	query      rego.PreparedEvalQuery
	bundleHash string
	bundleID   string
}

func NewEngineFromBundlePath(ctx context.Context, bundlePath string, bundleID string) (*Engine, error) {
	bundleHash, err := ComputeBundleHashFromPath(bundlePath)
	if err != nil {
		return nil, err
	}

	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	r := rego.New(
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}

	return &Engine{
		query:      prepared,
		bundleHash: bundleHash,
		bundleID:   bundleID,
	}, nil
}

func (e *Engine) BundleHash() string {
	return e.bundleHash
}

func (e *Engine) BundleID() string {
	return e.bundleID
}

// Route implements the routing policy consulted after fusion.
func (e *Engine) Route(ctx context.Context, verdict domain.RiskVerdict) (usecase.RoutingDecision, error) {
	result, err := e.Evaluate(ctx, domain.RoutingInput{
		RiskLevel:         string(verdict.RiskLevel),
		ReviewRequired:    verdict.ReviewRequired,
		VendorTrustStatus: string(verdict.VendorTrustStatus),
		SignatureStatus:   string(verdict.SignatureStatus),
		OverrideApplied:   verdict.OverrideApplied,
		AnomalyScore:      verdict.AnomalyScore,
	})
	if err != nil {
		return usecase.RoutingDecision{}, err
	}
	return usecase.RoutingDecision{
		Queue:   result.Queue,
		Reasons: result.Reasons,
	}, nil
}

func (e *Engine) Evaluate(ctx context.Context, input domain.RoutingInput) (domain.RoutingResult, error) {
	if e == nil {
		return domain.RoutingResult{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.RoutingResult{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.RoutingResult{}, errors.New("empty policy result")
	}
	raw := results[0].Expressions[0].Value
	result, err := decodeRoutingResult(raw)
	if err != nil {
		return domain.RoutingResult{}, err
	}
	sort.Strings(result.Reasons)
	return result, nil
}

func decodeRoutingResult(value any) (domain.RoutingResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return domain.RoutingResult{}, err
	}
	var result domain.RoutingResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.RoutingResult{}, err
	}
	return result, nil
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}
