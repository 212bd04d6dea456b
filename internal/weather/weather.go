// Package weather implements the Markov weather machine driving the
// garden's environmental modifiers. Advancing is a pure function of the
// active state, the tick counter and an injected random source.
package weather

import "math/rand"

// State names one weather regime.
type State string

const (
	Clear    State = "CLEAR"
	Rain     State = "RAIN"
	Storm    State = "STORM"
	Drought  State = "DROUGHT"
	Fog      State = "FOG"
	Heatwave State = "HEATWAVE"
)

// Modifiers are the environmental offsets a state applies while active.
type Modifiers struct {
	TemperatureOffset    float64
	SunlightMultiplier   float64
	MoistureDeltaPerTick float64
	Photosynthesis       float64
	Movement             float64
	Reproduction         float64
}

// Transition is one weighted edge to a reachable next state.
type Transition struct {
	To     State
	Weight float64
}

// Definition is the static configuration of one weather state.
// Never mutated at runtime.
type Definition struct {
	MinDurationTicks int64
	MaxDurationTicks int64
	Modifiers        Modifiers
	Transitions      []Transition
}

// Definitions is the static weather table. Weights are relative, ties
// broken by list order (first match under the cumulative threshold).
var Definitions = map[State]Definition{
	Clear: {
		MinDurationTicks: 12, MaxDurationTicks: 48,
		Modifiers: Modifiers{
			TemperatureOffset: 0, SunlightMultiplier: 1.0, MoistureDeltaPerTick: -0.005,
			Photosynthesis: 1.0, Movement: 1.0, Reproduction: 1.0,
		},
		Transitions: []Transition{
			{To: Clear, Weight: 4}, {To: Rain, Weight: 3}, {To: Fog, Weight: 2},
			{To: Drought, Weight: 1}, {To: Heatwave, Weight: 1},
		},
	},
	Rain: {
		MinDurationTicks: 6, MaxDurationTicks: 24,
		Modifiers: Modifiers{
			TemperatureOffset: -3, SunlightMultiplier: 0.6, MoistureDeltaPerTick: 0.02,
			Photosynthesis: 0.9, Movement: 0.8, Reproduction: 1.1,
		},
		Transitions: []Transition{
			{To: Clear, Weight: 4}, {To: Rain, Weight: 2}, {To: Storm, Weight: 2}, {To: Fog, Weight: 2},
		},
	},
	Storm: {
		MinDurationTicks: 3, MaxDurationTicks: 10,
		Modifiers: Modifiers{
			TemperatureOffset: -5, SunlightMultiplier: 0.3, MoistureDeltaPerTick: 0.05,
			Photosynthesis: 0.5, Movement: 0.5, Reproduction: 0.6,
		},
		Transitions: []Transition{
			{To: Rain, Weight: 5}, {To: Clear, Weight: 3}, {To: Fog, Weight: 2},
		},
	},
	Drought: {
		MinDurationTicks: 12, MaxDurationTicks: 60,
		Modifiers: Modifiers{
			TemperatureOffset: 4, SunlightMultiplier: 1.1, MoistureDeltaPerTick: -0.02,
			Photosynthesis: 0.6, Movement: 0.9, Reproduction: 0.7,
		},
		Transitions: []Transition{
			{To: Drought, Weight: 3}, {To: Clear, Weight: 4}, {To: Heatwave, Weight: 2}, {To: Rain, Weight: 1},
		},
	},
	Fog: {
		MinDurationTicks: 4, MaxDurationTicks: 16,
		Modifiers: Modifiers{
			TemperatureOffset: -1, SunlightMultiplier: 0.7, MoistureDeltaPerTick: 0.008,
			Photosynthesis: 0.8, Movement: 0.7, Reproduction: 0.9,
		},
		Transitions: []Transition{
			{To: Clear, Weight: 5}, {To: Rain, Weight: 3}, {To: Fog, Weight: 2},
		},
	},
	Heatwave: {
		MinDurationTicks: 6, MaxDurationTicks: 30,
		Modifiers: Modifiers{
			TemperatureOffset: 8, SunlightMultiplier: 1.2, MoistureDeltaPerTick: -0.03,
			Photosynthesis: 0.7, Movement: 0.7, Reproduction: 0.5,
		},
		Transitions: []Transition{
			{To: Clear, Weight: 4}, {To: Drought, Weight: 3}, {To: Heatwave, Weight: 2},
		},
	},
}

// Active is the runtime weather state carried in the garden snapshot.
type Active struct {
	State                   State `json:"state"`
	Previous                State `json:"previous"`
	EnteredAtTick           int64 `json:"entered_at_tick"`
	PlannedDurationTicks    int64 `json:"planned_duration_ticks"`
	TransitionProgressTicks int64 `json:"transition_progress_ticks"`
}

// Definition resolves the active state's static entry. Unknown or missing
// states fall back to the CLEAR baseline.
func (a Active) Definition() Definition {
	if def, ok := Definitions[a.State]; ok {
		return def
	}
	return Definitions[Clear]
}

// NewActive enters the given state at the given tick, sampling a planned
// duration uniformly between the definition's bounds (inclusive).
func NewActive(state State, previous State, tick int64, rng *rand.Rand) Active {
	def, ok := Definitions[state]
	if !ok {
		state = Clear
		def = Definitions[Clear]
	}
	span := def.MaxDurationTicks - def.MinDurationTicks
	duration := def.MinDurationTicks
	if span > 0 {
		duration += rng.Int63n(span + 1)
	}
	return Active{
		State:                state,
		Previous:             previous,
		EnteredAtTick:        tick,
		PlannedDurationTicks: duration,
	}
}

// Advance steps the machine by one tick. While the planned duration has
// not elapsed, only the transition progress moves (saturating at window).
// At expiry a next state is drawn from the weighted transition list.
func Advance(current Active, tick int64, window int64, rng *rand.Rand) Active {
	if _, ok := Definitions[current.State]; !ok {
		return NewActive(Clear, current.State, tick, rng)
	}

	if tick-current.EnteredAtTick < current.PlannedDurationTicks {
		if current.TransitionProgressTicks < window {
			current.TransitionProgressTicks++
		}
		return current
	}

	next := drawNext(current.Definition().Transitions, rng)
	return NewActive(next, current.State, tick, rng)
}

// drawNext picks a transition by cumulative weight; the first entry whose
// cumulative weight exceeds the threshold wins, so ties resolve in list order.
func drawNext(transitions []Transition, rng *rand.Rand) State {
	var total float64
	for _, t := range transitions {
		total += t.Weight
	}
	if total <= 0 || len(transitions) == 0 {
		return Clear
	}
	threshold := rng.Float64() * total
	var cumulative float64
	for _, t := range transitions {
		cumulative += t.Weight
		if threshold < cumulative {
			return t.To
		}
	}
	return transitions[len(transitions)-1].To
}

// BlendedModifiers interpolates linearly between the previous and current
// state's modifiers by transition progress over the window, so environmental
// values shift smoothly instead of snapping at a state change.
func BlendedModifiers(a Active, window int64) Modifiers {
	cur := a.Definition().Modifiers
	if window <= 0 || a.TransitionProgressTicks >= window || a.Previous == "" {
		return cur
	}
	prevDef, ok := Definitions[a.Previous]
	if !ok {
		return cur
	}
	prev := prevDef.Modifiers
	f := float64(a.TransitionProgressTicks) / float64(window)
	lerp := func(from, to float64) float64 { return from + (to-from)*f }
	return Modifiers{
		TemperatureOffset:    lerp(prev.TemperatureOffset, cur.TemperatureOffset),
		SunlightMultiplier:   lerp(prev.SunlightMultiplier, cur.SunlightMultiplier),
		MoistureDeltaPerTick: lerp(prev.MoistureDeltaPerTick, cur.MoistureDeltaPerTick),
		Photosynthesis:       lerp(prev.Photosynthesis, cur.Photosynthesis),
		Movement:             lerp(prev.Movement, cur.Movement),
		Reproduction:         lerp(prev.Reproduction, cur.Reproduction),
	}
}
