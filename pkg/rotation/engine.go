package rotation

import (
	"context"

	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/internal/metrics"
)

// Verbs accepted by the engine.
const (
	VerbInitialize = "initialize"
	VerbRotate     = "rotate"
)

// Engine is the outer driver surface: it resolves each configured resource
// to its strategy and invokes one verb, collecting per-resource verdicts.
// Resources are processed sequentially; the engine imposes no fan-out and
// no scheduling of its own.
type Engine struct {
	logger   *logging.Logger
	recorder *metrics.Recorder
}

// NewEngine creates an engine. recorder may be nil to disable metrics.
func NewEngine(logger *logging.Logger, recorder *metrics.Recorder) *Engine {
	return &Engine{logger: logger, recorder: recorder}
}

// Run invokes verb for every resource and returns one Result per resource,
// in input order. An unknown strategy tag yields a skip verdict for that
// resource only. Errors are fatal conditions (RNG failure, contract
// violations) and abort the run.
func (e *Engine) Run(ctx context.Context, verb string, resources []*Resource, op *Context) ([]Result, error) {
	results := make([]Result, 0, len(resources))

	for _, res := range resources {
		result, err := e.runOne(ctx, verb, res, op)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

func (e *Engine) runOne(ctx context.Context, verb string, res *Resource, op *Context) (*Result, error) {
	rotator, ok := op.Rotators[res.StrategyType]
	if !ok {
		e.logger.Warn("Skipping '%s': unknown strategy '%s'", res.Name, res.StrategyType)
		return skipped(res, "unknown strategy '%s'", res.StrategyType), nil
	}

	start := op.Now()

	var result *Result
	var err error
	switch verb {
	case VerbInitialize:
		result, err = rotator.Initialize(ctx, res, op)
	case VerbRotate:
		result, err = rotator.Rotate(ctx, res, op)
	default:
		return nil, &unknownVerbError{verb: verb}
	}

	elapsed := op.Now().Sub(start)
	if e.recorder != nil {
		e.recorder.Observe(res.StrategyType, verb, outcomeLabel(result, err), elapsed)
	}
	if err != nil {
		return nil, err
	}

	if result.Rotated {
		e.logger.Info("%s: %s", res.Name, result.Notes)
	} else {
		e.logger.Warn("%s: %s", res.Name, result.Notes)
	}
	return result, nil
}

func outcomeLabel(result *Result, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeError
	case result.Rotated:
		return metrics.OutcomeRotated
	default:
		return metrics.OutcomeSkipped
	}
}

type unknownVerbError struct {
	verb string
}

func (e *unknownVerbError) Error() string {
	return "unknown verb '" + e.verb + "'"
}
