package flow

import (
	"strings"

	"github.com/BotWeave/BotWeave/internal/models"
)

// Evaluator decides whether a condition step's expression holds against the
// conversation variables. Expression semantics are deliberately pluggable:
// the linear advance does not consult conditions today, but the data model
// carries them so a branch-aware walk can be layered on without changes.
type Evaluator interface {
	Evaluate(expression string, variables map[string]string) bool
}

// BasicEvaluator supports the editor's simple comparison expressions:
//
//	variable == value
//	variable != value
//	variable contains value
//
// Unknown shapes evaluate to false rather than failing.
type BasicEvaluator struct{}

// Evaluate implements Evaluator.
func (BasicEvaluator) Evaluate(expression string, variables map[string]string) bool {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return false
	}
	for _, op := range []string{"==", "!=", " contains "} {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(expr[:idx])
		want := strings.Trim(strings.TrimSpace(expr[idx+len(op):]), `"'`)
		got, ok := variables[name]
		if !ok {
			return false
		}
		switch op {
		case "==":
			return got == want
		case "!=":
			return got != want
		default:
			return strings.Contains(got, want)
		}
	}
	return false
}

// MatchTransition picks the outgoing transition for a step given the user's
// selected option handle, falling back to the first unlabeled transition.
// This is the hook point for a future branch-aware walk; the session store's
// Advance does not call it.
func MatchTransition(step models.Step, sourceHandle string) (models.Transition, bool) {
	for _, t := range step.Transitions {
		if t.SourceHandle == sourceHandle && sourceHandle != "" {
			return t, true
		}
	}
	for _, t := range step.Transitions {
		if t.SourceHandle == "" {
			return t, true
		}
	}
	return models.Transition{}, false
}
