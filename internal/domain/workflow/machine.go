package workflow

import "fmt"

// Machine tracks a current state and validates trigger-driven transitions
type Machine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the target state if permitted
	Fire(trigger Trigger) error

	// PermittedTriggers returns the triggers that can fire from the current state
	PermittedTriggers() []Trigger
}

// Builder assembles the transition table for a Machine
type Builder interface {
	// Configure returns the configuration for transitions out of a state
	Configure(state State) StateConfig

	// Build creates a machine positioned at the given initial state
	Build(initial State) Machine
}

// StateConfig declares permitted transitions out of one state
type StateConfig interface {
	// Permit allows the trigger to move the machine to the target state
	Permit(trigger Trigger, target State) StateConfig
}

type stateConfig struct {
	transitions map[Trigger]State
}

type builder struct {
	states map[State]*stateConfig
}

type machine struct {
	current State
	states  map[State]*stateConfig
}

// NewBuilder creates an empty transition-table builder
func NewBuilder() Builder {
	return &builder{states: make(map[State]*stateConfig)}
}

func (b *builder) Configure(state State) StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("workflow: configuring unknown state %q", state))
	}
	cfg, ok := b.states[state]
	if !ok {
		cfg = &stateConfig{transitions: make(map[Trigger]State)}
		b.states[state] = cfg
	}
	return cfg
}

func (b *builder) Build(initial State) Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("workflow: unknown initial state %q", initial))
	}

	// Copy the table so machines stay independent of later builder use
	states := make(map[State]*stateConfig, len(b.states))
	for state, cfg := range b.states {
		transitions := make(map[Trigger]State, len(cfg.transitions))
		for trigger, target := range cfg.transitions {
			transitions[trigger] = target
		}
		states[state] = &stateConfig{transitions: transitions}
	}

	return &machine{current: initial, states: states}
}

func (c *stateConfig) Permit(trigger Trigger, target State) StateConfig {
	if !target.IsValid() {
		panic(fmt.Sprintf("workflow: unknown target state %q", target))
	}
	c.transitions[trigger] = target
	return c
}

func (m *machine) State() State {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.states[m.current]
	if !ok {
		return false
	}
	_, ok = cfg.transitions[trigger]
	return ok
}

func (m *machine) Fire(trigger Trigger) error {
	cfg, ok := m.states[m.current]
	if !ok {
		return fmt.Errorf("%w: trigger %s from terminal state %s", ErrInvalidTransition, trigger, m.current)
	}
	target, ok := cfg.transitions[trigger]
	if !ok {
		return fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = target
	return nil
}

func (m *machine) PermittedTriggers() []Trigger {
	cfg, ok := m.states[m.current]
	if !ok {
		return nil
	}
	triggers := make([]Trigger, 0, len(cfg.transitions))
	for trigger := range cfg.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
