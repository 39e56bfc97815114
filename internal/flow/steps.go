// Package flow implements the flow graph model and the response engines that
// walk it: a stateless scripted engine and a session-backed stateful engine.
package flow

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BotWeave/BotWeave/internal/models"
)

// flowDocument is the persisted object form: either the editor's raw
// {nodes, edges} graph or a pre-flattened {steps} wrapper.
type flowDocument struct {
	Name  string        `json:"name,omitempty"`
	Nodes []models.Node `json:"nodes,omitempty"`
	Edges []models.Edge `json:"edges,omitempty"`
	Steps []models.Step `json:"steps,omitempty"`
}

// ToSteps flattens a flow graph into the ordered step sequence consumed by
// the response engines. One step is emitted per node in declaration order;
// nodes of unrecognized kinds are skipped. Edge-derived transitions are
// appended to the step matching each edge's source; edges whose source
// matches no step are dropped. The conversion is pure and idempotent.
func ToSteps(def models.FlowDefinition) []models.Step {
	steps := make([]models.Step, 0, len(def.Nodes))
	index := make(map[string]int, len(def.Nodes))
	for _, n := range def.Nodes {
		step := models.Step{ID: n.ID, Kind: n.Kind, Content: n.Data.Label}
		switch n.Kind {
		case models.NodeMessage, models.NodeFinal:
			// content only
		case models.NodeQuestion:
			step.Options = append([]models.QuestionOption(nil), n.Data.Options...)
		case models.NodeCondition:
			step.Expression = n.Data.Expression
		default:
			continue
		}
		index[n.ID] = len(steps)
		steps = append(steps, step)
	}
	for _, e := range def.Edges {
		i, ok := index[e.Source]
		if !ok {
			continue
		}
		steps[i].Transitions = append(steps[i].Transitions, models.Transition{
			TargetID:     e.Target,
			SourceHandle: e.SourceHandle,
		})
	}
	return steps
}

// ParseFlowDocument decodes a persisted flow into its step sequence. It
// accepts either shape transparently: a bare JSON array of steps (legacy
// format), an object carrying a steps array, or the editor's {nodes, edges}
// graph, which is flattened via ToSteps.
func ParseFlowDocument(doc []byte) ([]models.Step, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return nil, models.ErrEmptyFlowDocument
	}
	if trimmed[0] == '[' {
		var steps []models.Step
		if err := json.Unmarshal(trimmed, &steps); err != nil {
			return nil, fmt.Errorf("failed to parse legacy steps array: %w", err)
		}
		return steps, nil
	}
	var parsed flowDocument
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse flow document: %w", err)
	}
	if len(parsed.Steps) > 0 {
		return parsed.Steps, nil
	}
	return ToSteps(models.FlowDefinition{Name: parsed.Name, Nodes: parsed.Nodes, Edges: parsed.Edges}), nil
}
