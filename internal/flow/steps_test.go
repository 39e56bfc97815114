package flow

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/BotWeave/BotWeave/internal/models"
)

func sampleDefinition() models.FlowDefinition {
	return models.FlowDefinition{
		Name: "onboarding",
		Nodes: []models.Node{
			{ID: "n1", Kind: models.NodeMessage, Data: models.NodeData{Label: "Welcome!"}},
			{ID: "n2", Kind: models.NodeQuestion, Data: models.NodeData{
				Label: "What do you need?",
				Options: []models.QuestionOption{
					{ID: "o1", Text: "Sales"},
					{ID: "o2", Text: "Support"},
				},
			}},
			{ID: "n3", Kind: models.NodeCondition, Data: models.NodeData{Label: "route", Expression: `choice == "Sales"`}},
			{ID: "n4", Kind: models.NodeFinal, Data: models.NodeData{Label: "Bye!"}},
		},
		Edges: []models.Edge{
			{Source: "n1", Target: "n2"},
			{Source: "n2", Target: "n3", SourceHandle: "o1"},
			{Source: "n2", Target: "n4", SourceHandle: "o2"},
			{Source: "n3", Target: "n4"},
		},
	}
}

func TestToSteps(t *testing.T) {
	steps := ToSteps(sampleDefinition())
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	if steps[0].Kind != models.NodeMessage || steps[0].Content != "Welcome!" {
		t.Errorf("step 0 wrong: %+v", steps[0])
	}
	if len(steps[1].Options) != 2 {
		t.Errorf("question step should carry its options: %+v", steps[1])
	}
	if len(steps[1].Transitions) != 2 {
		t.Errorf("question step should carry one transition per option edge: %+v", steps[1].Transitions)
	}
	if steps[1].Transitions[0].SourceHandle != "o1" {
		t.Errorf("transition should keep its source handle: %+v", steps[1].Transitions[0])
	}
	if steps[2].Expression == "" {
		t.Errorf("condition step should carry its expression")
	}
	if steps[3].Kind != models.NodeFinal || len(steps[3].Transitions) != 0 {
		t.Errorf("final step must have no transitions: %+v", steps[3])
	}
}

func TestToStepsIdempotent(t *testing.T) {
	def := sampleDefinition()
	first := ToSteps(def)
	second := ToSteps(def)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ToSteps is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestToStepsSkipsUnknownKindsAndOrphanEdges(t *testing.T) {
	def := models.FlowDefinition{
		Nodes: []models.Node{
			{ID: "a", Kind: models.NodeMessage, Data: models.NodeData{Label: "hi"}},
			{ID: "b", Kind: "teleport", Data: models.NodeData{Label: "???"}},
			{ID: "c", Kind: models.NodeFinal, Data: models.NodeData{Label: "done"}},
		},
		Edges: []models.Edge{
			{Source: "a", Target: "c"},
			{Source: "ghost", Target: "a"},
			{Source: "b", Target: "c"},
		},
	}
	steps := ToSteps(def)
	if len(steps) != 2 {
		t.Fatalf("unknown node kind should be skipped, got %d steps", len(steps))
	}
	if len(steps[0].Transitions) != 1 {
		t.Errorf("edge from known node should survive: %+v", steps[0].Transitions)
	}
	for _, s := range steps {
		for _, tr := range s.Transitions {
			if tr.TargetID == "a" {
				t.Errorf("orphan edge should have been dropped")
			}
		}
	}
}

func TestParseFlowDocumentGraphForm(t *testing.T) {
	doc, err := json.Marshal(sampleDefinition())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	steps, err := ParseFlowDocument(doc)
	if err != nil {
		t.Fatalf("ParseFlowDocument: %v", err)
	}
	if !reflect.DeepEqual(steps, ToSteps(sampleDefinition())) {
		t.Errorf("graph form should flatten identically to ToSteps")
	}
}

func TestParseFlowDocumentLegacyStepsArray(t *testing.T) {
	legacy := []byte(`[{"id":"s1","type":"message","content":"Hi"},{"id":"s2","type":"final","content":"Bye"}]`)
	steps, err := ParseFlowDocument(legacy)
	if err != nil {
		t.Fatalf("ParseFlowDocument: %v", err)
	}
	if len(steps) != 2 || steps[0].Content != "Hi" || steps[1].Kind != models.NodeFinal {
		t.Errorf("legacy steps array not parsed: %+v", steps)
	}
}

func TestParseFlowDocumentStepsWrapper(t *testing.T) {
	wrapped := []byte(`{"steps":[{"id":"s1","type":"message","content":"Hi"}]}`)
	steps, err := ParseFlowDocument(wrapped)
	if err != nil {
		t.Fatalf("ParseFlowDocument: %v", err)
	}
	if len(steps) != 1 || steps[0].Content != "Hi" {
		t.Errorf("steps wrapper not parsed: %+v", steps)
	}
}

func TestParseFlowDocumentRoundTrip(t *testing.T) {
	// Flatten, re-serialize the steps, parse again: structurally identical.
	steps := ToSteps(sampleDefinition())
	raw, err := json.Marshal(steps)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := ParseFlowDocument(raw)
	if err != nil {
		t.Fatalf("ParseFlowDocument: %v", err)
	}
	if !reflect.DeepEqual(steps, again) {
		t.Errorf("steps round trip changed structure:\n%+v\n%+v", steps, again)
	}
}

func TestParseFlowDocumentMalformed(t *testing.T) {
	for _, doc := range [][]byte{nil, []byte("   "), []byte("{not json"), []byte("[{]")} {
		if _, err := ParseFlowDocument(doc); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestFlowDefinitionValidate(t *testing.T) {
	good := sampleDefinition()
	if err := good.Validate(); err != nil {
		t.Errorf("valid definition rejected: %v", err)
	}

	dup := sampleDefinition()
	dup.Nodes = append(dup.Nodes, models.Node{ID: "n1", Kind: models.NodeMessage})
	if err := dup.Validate(); err == nil {
		t.Error("duplicate node ID accepted")
	}

	dangling := sampleDefinition()
	dangling.Edges = append(dangling.Edges, models.Edge{Source: "n1", Target: "nowhere"})
	if err := dangling.Validate(); err == nil {
		t.Error("dangling edge accepted")
	}

	fromFinal := sampleDefinition()
	fromFinal.Edges = append(fromFinal.Edges, models.Edge{Source: "n4", Target: "n1"})
	if err := fromFinal.Validate(); err == nil {
		t.Error("outgoing edge from final node accepted")
	}
}
