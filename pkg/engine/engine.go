// Package engine provides a synchronous dry run over a flow graph: the
// walk a real executor would take for a given input, with delays recorded
// instead of slept. The production executor's scheduling and retry
// behavior live elsewhere; this package only exercises the data contract.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/flowforge/pkg/flow"
)

// maxSteps bounds a test run. Flow graphs may contain loops, so the walk
// is capped rather than required to terminate.
const maxSteps = 100

// ErrStepLimit is returned when a test run exceeds maxSteps, which almost
// always means the graph loops without reaching an end node.
var ErrStepLimit = errors.New("test run exceeded step limit")

// Input is the payload a test run evaluates condition rules against.
type Input struct {
	Email string `json:"email"`
}

// Step records one visited node during a test run.
type Step struct {
	NodeID string    `json:"nodeId"`
	Type   flow.Kind `json:"type"`
	Detail string    `json:"detail"`
	Branch string    `json:"branch,omitempty"` // condition nodes only
}

// EvaluateRule reports whether a single rule matches the input.
// Unknown fields and operators never match.
func EvaluateRule(r flow.Rule, in Input) bool {
	var actual string
	switch r.Field {
	case "email":
		actual = in.Email
	default:
		return false
	}

	switch r.Operator {
	case flow.RuleEquals:
		return actual == r.Value
	case flow.RuleNotEquals:
		return actual != r.Value
	case flow.RuleIncludes:
		return strings.Contains(actual, r.Value)
	case flow.RuleStartsWith:
		return strings.HasPrefix(actual, r.Value)
	case flow.RuleEndsWith:
		return strings.HasSuffix(actual, r.Value)
	}
	return false
}

// Evaluate combines a condition's rules with its boolean operator:
// AND requires every rule to match, OR requires at least one.
// A condition with no rules evaluates to false.
func Evaluate(cfg flow.ConditionConfig, in Input) bool {
	if len(cfg.Rules) == 0 {
		return false
	}
	for _, r := range cfg.Rules {
		matched := EvaluateRule(r, in)
		if cfg.Operator == flow.OpOr && matched {
			return true
		}
		if cfg.Operator != flow.OpOr && !matched {
			return false
		}
	}
	return cfg.Operator != flow.OpOr
}

// TestRun walks the graph from its start node, recording one step per
// visited node, until an end node is reached or the step limit trips.
// The graph should be validated first; a malformed graph produces an
// error naming the node where the walk got stuck.
func TestRun(g *flow.Graph, in Input) ([]Step, error) {
	start, ok := g.Start()
	if !ok {
		return nil, errors.New("graph has no unique start node")
	}

	var steps []Step
	current := start
	for range maxSteps {
		step, next, err := walkNode(g, current, in)
		if err != nil {
			return steps, err
		}
		steps = append(steps, step)
		if next == nil {
			return steps, nil
		}
		current = next
	}
	return steps, ErrStepLimit
}

// walkNode records the step for one node and picks the next node, or nil
// when the node is an end.
func walkNode(g *flow.Graph, n *flow.Node, in Input) (Step, *flow.Node, error) {
	step := Step{NodeID: n.ID, Type: n.Kind}

	branch := ""
	switch cfg := n.Config.(type) {
	case flow.StartConfig:
		step.Detail = "start"
	case flow.EndConfig:
		step.Detail = "end"
		return step, nil, nil
	case flow.ActionConfig:
		step.Detail = fmt.Sprintf("send %q", cfg.Message)
	case flow.DelayConfig:
		if cfg.Type == flow.DelaySpecific {
			step.Detail = fmt.Sprintf("wait until %s", cfg.At.Format(time.RFC3339))
		} else {
			step.Detail = fmt.Sprintf("wait %d %s", cfg.Value, cfg.Unit)
		}
	case flow.ConditionConfig:
		if Evaluate(cfg, in) {
			branch = flow.BranchTrue
		} else {
			branch = flow.BranchFalse
		}
		step.Branch = branch
		step.Detail = fmt.Sprintf("%d rule(s) %s, took %s branch", len(cfg.Rules), cfg.Operator, branch)
	}

	next, err := followEdge(g, n, branch)
	if err != nil {
		return step, nil, err
	}
	return step, next, nil
}

func followEdge(g *flow.Graph, n *flow.Node, branch string) (*flow.Node, error) {
	for _, e := range g.Outgoing(n.ID) {
		if branch != "" && e.SourceHandle != branch {
			continue
		}
		next, ok := g.Node(e.Target)
		if !ok {
			return nil, fmt.Errorf("edge %s targets missing node %q", e.ID, e.Target)
		}
		return next, nil
	}
	if branch != "" {
		return nil, fmt.Errorf("node %s has no %s branch", n.ID, branch)
	}
	return nil, fmt.Errorf("node %s has no outgoing edge", n.ID)
}
