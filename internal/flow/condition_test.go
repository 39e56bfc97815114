package flow

import (
	"testing"

	"github.com/BotWeave/BotWeave/internal/models"
)

func TestBasicEvaluator(t *testing.T) {
	vars := map[string]string{"choice": "Sales", "city": "Kyiv"}
	cases := []struct {
		expr string
		want bool
	}{
		{`choice == "Sales"`, true},
		{`choice == "Support"`, false},
		{`choice != "Support"`, true},
		{`city contains Ky`, true},
		{`city contains NY`, false},
		{`missing == "x"`, false},
		{``, false},
		{`gibberish`, false},
	}
	var ev BasicEvaluator
	for _, tc := range cases {
		if got := ev.Evaluate(tc.expr, vars); got != tc.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestMatchTransition(t *testing.T) {
	step := models.Step{
		ID:   "q1",
		Kind: models.NodeQuestion,
		Transitions: []models.Transition{
			{TargetID: "a", SourceHandle: "o1"},
			{TargetID: "b", SourceHandle: "o2"},
			{TargetID: "c"},
		},
	}
	if tr, ok := MatchTransition(step, "o2"); !ok || tr.TargetID != "b" {
		t.Errorf("handle match failed: %+v %v", tr, ok)
	}
	if tr, ok := MatchTransition(step, "unknown"); !ok || tr.TargetID != "c" {
		t.Errorf("expected fallback to unlabeled transition: %+v %v", tr, ok)
	}
	if _, ok := MatchTransition(models.Step{}, "o1"); ok {
		t.Error("no transitions should mean no match")
	}
}
