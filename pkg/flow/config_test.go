package flow

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	tests := []struct {
		kind  Kind
		check func(t *testing.T, cfg Config)
	}{
		{
			kind: KindStart,
			check: func(t *testing.T, cfg Config) {
				if _, ok := cfg.(StartConfig); !ok {
					t.Errorf("got %T", cfg)
				}
			},
		},
		{
			kind: KindEnd,
			check: func(t *testing.T, cfg Config) {
				if _, ok := cfg.(EndConfig); !ok {
					t.Errorf("got %T", cfg)
				}
			},
		},
		{
			kind: KindAction,
			check: func(t *testing.T, cfg Config) {
				if c := cfg.(ActionConfig); c.Message != "" {
					t.Errorf("Message = %q, want empty", c.Message)
				}
			},
		},
		{
			kind: KindDelay,
			check: func(t *testing.T, cfg Config) {
				c := cfg.(DelayConfig)
				if c.Type != DelayRelative || c.Value != 5 || c.Unit != UnitMinutes {
					t.Errorf("got %+v, want relative 5 minutes", c)
				}
			},
		},
		{
			kind: KindCondition,
			check: func(t *testing.T, cfg Config) {
				c := cfg.(ConditionConfig)
				if c.Operator != OpAnd {
					t.Errorf("Operator = %q, want AND", c.Operator)
				}
				if c.Rules == nil || len(c.Rules) != 0 {
					t.Errorf("Rules = %v, want empty non-nil", c.Rules)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			cfg := DefaultConfig(tt.kind)
			if cfg.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", cfg.Kind(), tt.kind)
			}
			tt.check(t, cfg)
		})
	}
}

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		data  string
		check func(t *testing.T, cfg Config)
	}{
		{
			name: "empty payload yields defaults",
			kind: KindDelay,
			data: "",
			check: func(t *testing.T, cfg Config) {
				if c := cfg.(DelayConfig); c.Value != 5 {
					t.Errorf("Value = %d, want 5", c.Value)
				}
			},
		},
		{
			name: "action message",
			kind: KindAction,
			data: `{"message":"welcome aboard"}`,
			check: func(t *testing.T, cfg Config) {
				if c := cfg.(ActionConfig); c.Message != "welcome aboard" {
					t.Errorf("Message = %q", c.Message)
				}
			},
		},
		{
			name: "specific delay",
			kind: KindDelay,
			data: `{"delayType":"specific","specificDateTime":"2026-06-01T09:00:00Z"}`,
			check: func(t *testing.T, cfg Config) {
				c := cfg.(DelayConfig)
				if c.Type != DelaySpecific {
					t.Errorf("Type = %q", c.Type)
				}
				want := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
				if !c.At.Equal(want) {
					t.Errorf("At = %v, want %v", c.At, want)
				}
			},
		},
		{
			name: "condition defaults operator and rules",
			kind: KindCondition,
			data: `{}`,
			check: func(t *testing.T, cfg Config) {
				c := cfg.(ConditionConfig)
				if c.Operator != OpAnd {
					t.Errorf("Operator = %q, want AND", c.Operator)
				}
				if c.Rules == nil {
					t.Error("Rules = nil, want empty slice")
				}
			},
		},
		{
			name: "condition with rules",
			kind: KindCondition,
			data: `{"rules":[{"field":"email","operator":"ends_with","value":"@example.com"}],"operator":"OR"}`,
			check: func(t *testing.T, cfg Config) {
				c := cfg.(ConditionConfig)
				if c.Operator != OpOr {
					t.Errorf("Operator = %q, want OR", c.Operator)
				}
				if len(c.Rules) != 1 || c.Rules[0].Operator != RuleEndsWith {
					t.Errorf("Rules = %+v", c.Rules)
				}
			},
		},
		{
			name: "unknown keys are ignored",
			kind: KindAction,
			data: `{"message":"hi","legacyField":true}`,
			check: func(t *testing.T, cfg Config) {
				if c := cfg.(ActionConfig); c.Message != "hi" {
					t.Errorf("Message = %q", c.Message)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DecodeConfig(tt.kind, []byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeConfig: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestDecodeConfigUnknownKind(t *testing.T) {
	if _, err := DecodeConfig(Kind("bogus"), []byte(`{}`)); err == nil {
		t.Error("DecodeConfig(bogus) succeeded, want error")
	}
}

func TestDelayUnitDuration(t *testing.T) {
	tests := []struct {
		unit  DelayUnit
		value int
		want  time.Duration
	}{
		{UnitMinutes, 5, 5 * time.Minute},
		{UnitHours, 2, 2 * time.Hour},
		{UnitDays, 3, 72 * time.Hour},
		{DelayUnit("fortnights"), 1, 0},
	}

	for _, tt := range tests {
		if got := tt.unit.Duration(tt.value); got != tt.want {
			t.Errorf("%s.Duration(%d) = %v, want %v", tt.unit, tt.value, got, tt.want)
		}
	}
}

func TestMergeConfigPreservesUnpatchedFields(t *testing.T) {
	base := DelayConfig{Type: DelayRelative, Value: 7, Unit: UnitHours}

	merged, err := mergeConfig(base, map[string]any{"delayUnit": "days"})
	if err != nil {
		t.Fatalf("mergeConfig: %v", err)
	}
	got := merged.(DelayConfig)
	if got.Unit != UnitDays {
		t.Errorf("Unit = %q, want days", got.Unit)
	}
	if got.Value != 7 || got.Type != DelayRelative {
		t.Errorf("merge dropped fields: %+v", got)
	}

	// Empty patch returns the config unchanged.
	same, err := mergeConfig(base, nil)
	if err != nil {
		t.Fatalf("mergeConfig: %v", err)
	}
	if same.(DelayConfig) != base {
		t.Errorf("empty patch changed config: %+v", same)
	}
}
