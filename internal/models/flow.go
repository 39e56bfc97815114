// Package models defines the flow graph structures shared by the flow engine and the API.
package models

import (
	"errors"
	"fmt"
	"time"
)

// NodeKind represents the closed set of node variants in a flow graph.
type NodeKind string

const (
	// NodeMessage sends its content and moves on.
	NodeMessage NodeKind = "message"
	// NodeQuestion sends its content and offers a set of options.
	NodeQuestion NodeKind = "question"
	// NodeCondition branches on a boolean expression over conversation variables.
	NodeCondition NodeKind = "condition"
	// NodeFinal is terminal; it has no outgoing transitions.
	NodeFinal NodeKind = "final"
)

// IsValidNodeKind checks if the given node kind is supported. Unknown kinds
// are tolerated at parse sites (skipped), not rejected.
func IsValidNodeKind(k NodeKind) bool {
	switch k {
	case NodeMessage, NodeQuestion, NodeCondition, NodeFinal:
		return true
	default:
		return false
	}
}

// Error variables for flow validation
var (
	ErrEmptyNodeID       = errors.New("node ID cannot be empty")
	ErrDuplicateNodeID   = errors.New("node IDs must be unique within a flow")
	ErrDanglingEdge      = errors.New("edge references a node that does not exist")
	ErrFinalHasOutgoing  = errors.New("final nodes cannot have outgoing edges")
	ErrEmptyFlowDocument = errors.New("flow document is empty")
)

// QuestionOption is one selectable choice on a question node.
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// NodeData carries the variant-specific payload of a node as persisted by the editor.
type NodeData struct {
	Label      string           `json:"label"`
	Options    []QuestionOption `json:"options,omitempty"`
	Expression string           `json:"expression,omitempty"`
}

// Node is one unit of bot behavior in a flow graph.
type Node struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"type"`
	Data NodeData `json:"data"`
}

// Edge connects two nodes. SourceHandle identifies which question option or
// condition branch the edge departs from, when the source node has several.
type Edge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// FlowDefinition is the persisted graph form produced by the visual editor.
type FlowDefinition struct {
	Name  string `json:"name,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Validate checks the structural invariants of a flow graph: unique node IDs,
// edges referencing existing nodes, and no outgoing edges from final nodes.
func (f *FlowDefinition) Validate() error {
	seen := make(map[string]NodeKind, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.ID == "" {
			return ErrEmptyNodeID
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		seen[n.ID] = n.Kind
	}
	for _, e := range f.Edges {
		srcKind, srcOK := seen[e.Source]
		if !srcOK {
			return fmt.Errorf("%w: source %s", ErrDanglingEdge, e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return fmt.Errorf("%w: target %s", ErrDanglingEdge, e.Target)
		}
		if srcKind == NodeFinal {
			return fmt.Errorf("%w: %s", ErrFinalHasOutgoing, e.Source)
		}
	}
	return nil
}

// Transition is a flattened outgoing edge attached to a step.
type Transition struct {
	TargetID     string `json:"targetId"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// Step is a flattened node as consumed by the response engines. The legacy
// persisted form is a plain JSON array of steps; the runtime accepts it
// interchangeably with the raw {nodes, edges} document.
type Step struct {
	ID      string   `json:"id"`
	Kind    NodeKind `json:"type"`
	Content string   `json:"content"`
	// Options and Expression carry question/condition payloads. They are
	// surfaced for a future branch-aware walk; the linear advance does not
	// consult them.
	Options     []QuestionOption `json:"options,omitempty"`
	Expression  string           `json:"expression,omitempty"`
	Transitions []Transition     `json:"transitions,omitempty"`
}

// StoredFlow is the persistence record for one flow. Document holds the raw
// JSON form, either {nodes, edges} or a legacy steps array.
type StoredFlow struct {
	ID        string    `json:"id"`
	ChatbotID string    `json:"chatbot_id"`
	Name      string    `json:"name"`
	Document  []byte    `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks stored flow fields before persistence.
func (f *StoredFlow) Validate() error {
	if len(f.Document) == 0 {
		return ErrEmptyFlowDocument
	}
	return nil
}

// HistoryEntry records one user turn against the step that was current when it arrived.
type HistoryEntry struct {
	StepIndex int    `json:"stepIndex"`
	Message   string `json:"message"`
}

// ConversationState is the per-session progress pointer and variable bag for
// stateful flow traversal. It is owned exclusively by the session store and
// lives only for the process lifetime.
type ConversationState struct {
	ConversationID   string            `json:"conversation_id"`
	FlowID           string            `json:"flow_id"`
	CurrentStepIndex int               `json:"current_step_index"`
	Variables        map[string]string `json:"variables"`
	History          []HistoryEntry    `json:"history"`
	// Completed is set once the final step's content has been delivered;
	// further advances return the fallback reply instead of repeating it.
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StateUpdate is a partial state for shallow merging into an existing
// conversation state. Nil fields are left untouched.
type StateUpdate struct {
	CurrentStepIndex *int
	FlowID           *string
	Variables        map[string]string
	Completed        *bool
}
