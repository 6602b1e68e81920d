// Package flow implements the automation flow graph: a directed graph of
// typed steps (start, end, action, delay, condition) that an editor mutates
// in memory and a backend executor consumes after serialization.
//
// The package follows a permissive-edit, strict-save policy. Mutating
// operations ([Graph.AddNode], [Graph.Connect], [Graph.UpdateNodeConfig])
// accept structurally incomplete graphs so in-progress editing is never
// blocked. [Graph.Validate] enforces the full invariant set and is meant to
// run once, as a gate before persistence.
package flow

import "fmt"

// Kind is the closed-set discriminant for node types.
type Kind string

// The five node kinds. The set is closed: a graph containing any other
// kind is rejected during deserialization.
const (
	KindStart     Kind = "start"
	KindEnd       Kind = "end"
	KindAction    Kind = "action"
	KindDelay     Kind = "delay"
	KindCondition Kind = "condition"
)

// Kinds returns all node kinds in display order.
func Kinds() []Kind {
	return []Kind{KindStart, KindEnd, KindAction, KindDelay, KindCondition}
}

// ParseKind converts a string to a Kind.
// Returns an error for anything outside the closed set.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindStart, KindEnd, KindAction, KindDelay, KindCondition:
		return k, nil
	}
	return "", fmt.Errorf("unknown node kind %q", s)
}

// Valid reports whether the kind is a member of the closed set.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// AllowsOutgoing reports whether nodes of this kind may have outgoing
// edges. Only end nodes are outgoing-terminal.
func (k Kind) AllowsOutgoing() bool { return k != KindEnd }

// AllowsIncoming reports whether nodes of this kind may have incoming
// edges. Only start nodes are incoming-terminal.
func (k Kind) AllowsIncoming() bool { return k != KindStart }

// IsTerminal reports whether the kind forbids edges in one direction
// (start forbids incoming, end forbids outgoing).
func (k Kind) IsTerminal() bool { return k == KindStart || k == KindEnd }
