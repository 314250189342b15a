package oracle

import (
	"context"
	"fmt"

	"sregrade/pkg/errors"
)

// Compounded runs every sub-oracle and succeeds only when all of them do.
type Compounded struct {
	name string
	subs []Oracle
}

// NewCompounded combines the oracles in order under the given name.
func NewCompounded(name string, subs ...Oracle) *Compounded {
	return &Compounded{name: name, subs: append([]Oracle(nil), subs...)}
}

func (c *Compounded) Name() string {
	return c.name
}

// Evaluate calls each sub-oracle even after one fails, so the payload carries every diagnostic.
// A sub-oracle error is recorded as that oracle's failed verdict rather than returned.
func (c *Compounded) Evaluate(ctx context.Context, solution any) (Result, error) {
	combined := Result{Success: true, Extra: make(map[string]any, len(c.subs))}
	for i, sub := range c.subs {
		res, err := safeEvaluate(ctx, sub, solution)
		if err != nil {
			res = Failed(err)
		}
		if !res.Success {
			combined.Success = false
		}
		key := sub.Name()
		if _, dup := combined.Extra[key]; dup || key == "" {
			key = fmt.Sprintf("%s#%d", sub.Name(), i)
		}
		combined.Extra[key] = res
	}
	return combined, nil
}

// Run evaluates o and turns a returned error or a panic into a failed verdict.
func Run(ctx context.Context, o Oracle, solution any) (res Result, err error) {
	res, err = safeEvaluate(ctx, o, solution)
	if err != nil {
		return Failed(err), errors.Wrapf(err, errors.OracleEvaluationError, "oracle %s: %v", o.Name(), err)
	}
	return res, nil
}

func safeEvaluate(ctx context.Context, o Oracle, solution any) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", o.Name(), r)
		}
	}()
	return o.Evaluate(ctx, solution)
}
