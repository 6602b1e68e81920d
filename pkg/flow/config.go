package flow

import (
	"encoding/json"
	"fmt"
	"time"
)

// DelayType selects between the two delay sub-shapes.
type DelayType string

const (
	DelayRelative DelayType = "relative" // wait delayValue delayUnits after the previous step
	DelaySpecific DelayType = "specific" // wait until an absolute point in time
)

// DelayUnit is the closed set of units for relative delays.
type DelayUnit string

const (
	UnitMinutes DelayUnit = "minutes"
	UnitHours   DelayUnit = "hours"
	UnitDays    DelayUnit = "days"
)

// Duration converts a relative delay value to a time.Duration.
// Unknown units yield zero.
func (u DelayUnit) Duration(value int) time.Duration {
	switch u {
	case UnitMinutes:
		return time.Duration(value) * time.Minute
	case UnitHours:
		return time.Duration(value) * time.Hour
	case UnitDays:
		return time.Duration(value) * 24 * time.Hour
	}
	return 0
}

// BoolOp combines a condition node's rules: all must match (AND) or any
// may match (OR). Distinct from the per-rule comparison operator.
type BoolOp string

const (
	OpAnd BoolOp = "AND"
	OpOr  BoolOp = "OR"
)

// RuleOp is a per-rule comparison operator.
type RuleOp string

const (
	RuleEquals     RuleOp = "equals"
	RuleNotEquals  RuleOp = "not_equals"
	RuleIncludes   RuleOp = "includes"
	RuleStartsWith RuleOp = "starts_with"
	RuleEndsWith   RuleOp = "ends_with"
)

// Rule is one comparison inside a condition node.
type Rule struct {
	Field    string `json:"field" bson:"field"`
	Operator RuleOp `json:"operator" bson:"operator"`
	Value    string `json:"value" bson:"value"`
}

// Config is the kind-specific payload of a node. It is a sealed union:
// exactly one concrete type exists per kind, and a node never holds a
// config belonging to another kind.
type Config interface {
	// Kind returns the node kind this config belongs to.
	Kind() Kind
}

// StartConfig is the (empty) payload of a start node.
type StartConfig struct{}

// EndConfig is the (empty) payload of an end node.
type EndConfig struct{}

// ActionConfig configures a send-action step.
type ActionConfig struct {
	Message string `json:"message" bson:"message"`
}

// DelayConfig configures a wait step. Exactly one sub-shape is meaningful
// per DelayType: Value/Unit for relative delays, At for specific ones.
type DelayConfig struct {
	Type  DelayType `json:"delayType" bson:"delayType"`
	Value int       `json:"delayValue,omitempty" bson:"delayValue,omitempty"`
	Unit  DelayUnit `json:"delayUnit,omitempty" bson:"delayUnit,omitempty"`
	At    time.Time `json:"specificDateTime,omitzero" bson:"specificDateTime,omitempty"`
}

// ConditionConfig configures a two-way branch. The node's outgoing edges
// carry the branch tags "true" and "false".
type ConditionConfig struct {
	Rules    []Rule `json:"rules" bson:"rules"`
	Operator BoolOp `json:"operator" bson:"operator"`
}

func (StartConfig) Kind() Kind     { return KindStart }
func (EndConfig) Kind() Kind       { return KindEnd }
func (ActionConfig) Kind() Kind    { return KindAction }
func (DelayConfig) Kind() Kind     { return KindDelay }
func (ConditionConfig) Kind() Kind { return KindCondition }

// DefaultConfig returns the zero-value configuration for a freshly created
// node of the given kind: an action starts with an empty message, a delay
// waits 5 minutes, a condition has no rules and combines with AND.
func DefaultConfig(k Kind) Config {
	switch k {
	case KindAction:
		return ActionConfig{}
	case KindDelay:
		return DelayConfig{Type: DelayRelative, Value: 5, Unit: UnitMinutes}
	case KindCondition:
		return ConditionConfig{Rules: []Rule{}, Operator: OpAnd}
	case KindEnd:
		return EndConfig{}
	default:
		return StartConfig{}
	}
}

// DecodeConfig decodes a JSON payload into the config type for the kind.
// Unknown keys are ignored so payloads written by older editors still load.
func DecodeConfig(k Kind, data []byte) (Config, error) {
	if len(data) == 0 {
		return DefaultConfig(k), nil
	}
	switch k {
	case KindStart:
		return StartConfig{}, nil
	case KindEnd:
		return EndConfig{}, nil
	case KindAction:
		var c ActionConfig
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("action config: %w", err)
		}
		return c, nil
	case KindDelay:
		var c DelayConfig
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("delay config: %w", err)
		}
		return c, nil
	case KindCondition:
		c := ConditionConfig{Operator: OpAnd}
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("condition config: %w", err)
		}
		if c.Rules == nil {
			c.Rules = []Rule{}
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", k)
}

// mergeConfig applies a shallow patch to a config: keys present in the
// patch overwrite the corresponding fields, everything else is retained.
// The patch keys are the config's JSON field names.
func mergeConfig(cfg Config, patch map[string]any) (Config, error) {
	if len(patch) == 0 {
		return cfg, nil
	}

	base, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range patch {
		m[k] = v
	}
	merged, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return DecodeConfig(cfg.Kind(), merged)
}
