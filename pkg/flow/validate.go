package flow

import (
	"fmt"
	"strings"
	"time"
)

// Problem describes one failed validation rule. NodeID or EdgeID is set
// when the problem is attributable to a specific element.
type Problem struct {
	NodeID  string `json:"nodeId,omitempty"`
	EdgeID  string `json:"edgeId,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	switch {
	case p.NodeID != "":
		return fmt.Sprintf("node %s: %s", p.NodeID, p.Message)
	case p.EdgeID != "":
		return fmt.Sprintf("edge %s: %s", p.EdgeID, p.Message)
	}
	return p.Message
}

// Rule names attached to problems. These identify which check failed,
// independent of the human-readable message.
const (
	RuleSingleStart       = "single-start"
	RuleEndRequired       = "end-required"
	RuleActionMessage     = "action-message"
	RuleDelayRelative     = "delay-relative"
	RuleDelaySpecific     = "delay-specific"
	RuleConditionRules    = "condition-rules"
	RuleConditionBranches = "condition-branches"
	RuleEdgeEndpoint      = "edge-endpoint"
	RuleNodeInbound       = "node-inbound"
	RuleNodeOutbound      = "node-outbound"
)

// Validate checks the graph against every save-time invariant and returns
// all failing reasons, not just the first. A nil result means the graph is
// valid and may be persisted. now anchors the strictly-in-the-future check
// for specific delays.
//
// Validate is a pure read: it never mutates the graph and performs no I/O.
// Cycles through delay or condition nodes are permitted.
func (g *Graph) Validate(now time.Time) []Problem {
	var problems []Problem

	// Exactly one start node.
	starts := 0
	for _, id := range g.nodeOrder {
		if g.nodes[id].Kind == KindStart {
			starts++
		}
	}
	if starts != 1 {
		problems = append(problems, Problem{
			Rule:    RuleSingleStart,
			Message: fmt.Sprintf("graph must have exactly one start node, found %d", starts),
		})
	}

	// Per-node config rules, in node insertion order.
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		switch cfg := n.Config.(type) {
		case ActionConfig:
			if strings.TrimSpace(cfg.Message) == "" {
				problems = append(problems, Problem{
					NodeID:  n.ID,
					Rule:    RuleActionMessage,
					Message: "action message must not be empty",
				})
			}
		case DelayConfig:
			problems = append(problems, validateDelay(n.ID, cfg, now)...)
		case ConditionConfig:
			problems = append(problems, g.validateCondition(n.ID, cfg)...)
		}
	}

	// No dangling edge endpoints.
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		if _, ok := g.nodes[e.Source]; !ok {
			problems = append(problems, Problem{
				EdgeID:  e.ID,
				Rule:    RuleEdgeEndpoint,
				Message: fmt.Sprintf("edge references missing source node %q", e.Source),
			})
		}
		if _, ok := g.nodes[e.Target]; !ok {
			problems = append(problems, Problem{
				EdgeID:  e.ID,
				Rule:    RuleEdgeEndpoint,
				Message: fmt.Sprintf("edge references missing target node %q", e.Target),
			})
		}
	}

	// Structural connectivity: at least one end, every non-start node is
	// reachable from something, every non-end node leads somewhere.
	ends := 0
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		if n.Kind == KindEnd {
			ends++
		}
		if n.Kind.AllowsIncoming() && len(g.incoming[n.ID]) == 0 {
			problems = append(problems, Problem{
				NodeID:  n.ID,
				Rule:    RuleNodeInbound,
				Message: fmt.Sprintf("%s node has no incoming edge", n.Kind),
			})
		}
		if n.Kind.AllowsOutgoing() && len(g.outgoing[n.ID]) == 0 {
			problems = append(problems, Problem{
				NodeID:  n.ID,
				Rule:    RuleNodeOutbound,
				Message: fmt.Sprintf("%s node has no outgoing edge", n.Kind),
			})
		}
	}
	if ends == 0 {
		problems = append(problems, Problem{
			Rule:    RuleEndRequired,
			Message: "graph must have at least one end node",
		})
	}

	return problems
}

func validateDelay(nodeID string, cfg DelayConfig, now time.Time) []Problem {
	switch cfg.Type {
	case DelaySpecific:
		if cfg.At.IsZero() {
			return []Problem{{
				NodeID:  nodeID,
				Rule:    RuleDelaySpecific,
				Message: "specific delay requires a date and time",
			}}
		}
		if !cfg.At.After(now) {
			return []Problem{{
				NodeID:  nodeID,
				Rule:    RuleDelaySpecific,
				Message: fmt.Sprintf("specific delay %s is not in the future", cfg.At.Format(time.RFC3339)),
			}}
		}
	case DelayRelative:
		var problems []Problem
		if cfg.Value <= 0 {
			problems = append(problems, Problem{
				NodeID:  nodeID,
				Rule:    RuleDelayRelative,
				Message: fmt.Sprintf("relative delay value must be a positive integer, got %d", cfg.Value),
			})
		}
		switch cfg.Unit {
		case UnitMinutes, UnitHours, UnitDays:
		default:
			problems = append(problems, Problem{
				NodeID:  nodeID,
				Rule:    RuleDelayRelative,
				Message: fmt.Sprintf("unknown delay unit %q", cfg.Unit),
			})
		}
		return problems
	default:
		return []Problem{{
			NodeID:  nodeID,
			Rule:    RuleDelayRelative,
			Message: fmt.Sprintf("unknown delay type %q", cfg.Type),
		}}
	}
	return nil
}

func (g *Graph) validateCondition(nodeID string, cfg ConditionConfig) []Problem {
	var problems []Problem

	if len(cfg.Rules) == 0 {
		problems = append(problems, Problem{
			NodeID:  nodeID,
			Rule:    RuleConditionRules,
			Message: "condition must have at least one rule",
		})
	}
	for i, r := range cfg.Rules {
		if strings.TrimSpace(r.Value) == "" {
			problems = append(problems, Problem{
				NodeID:  nodeID,
				Rule:    RuleConditionRules,
				Message: fmt.Sprintf("rule %d has an empty value", i+1),
			})
		}
	}

	// Exactly two outgoing edges, one tagged true and one tagged false.
	branches := map[string]int{}
	for _, e := range g.Outgoing(nodeID) {
		branches[e.SourceHandle]++
	}
	for _, tag := range []string{BranchTrue, BranchFalse} {
		switch n := branches[tag]; {
		case n == 0:
			problems = append(problems, Problem{
				NodeID:  nodeID,
				Rule:    RuleConditionBranches,
				Message: fmt.Sprintf("condition is missing its %s branch", tag),
			})
		case n > 1:
			problems = append(problems, Problem{
				NodeID:  nodeID,
				Rule:    RuleConditionBranches,
				Message: fmt.Sprintf("condition has %d edges tagged %s, want exactly one", n, tag),
			})
		}
	}
	if extra := len(g.outgoing[nodeID]) - branches[BranchTrue] - branches[BranchFalse]; extra > 0 {
		problems = append(problems, Problem{
			NodeID:  nodeID,
			Rule:    RuleConditionBranches,
			Message: fmt.Sprintf("condition has %d outgoing edges without a true/false branch tag", extra),
		})
	}

	return problems
}
