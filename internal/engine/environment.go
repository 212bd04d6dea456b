package engine

import (
	"math"
	"math/rand"

	"github.com/ojrac/opensimplex-go"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// EnvironmentUpdater derives the next environment snapshot from the
// previous one: it advances the weather machine, then recomputes
// temperature, sunlight and moisture from the diurnal cycle, the blended
// weather modifiers and a smooth noise jitter.
type EnvironmentUpdater struct {
	cfg         config.EnvironmentConfig
	window      int64
	ticksPerDay int64
	rng         *rand.Rand
	noise       opensimplex.Noise
}

// NewEnvironmentUpdater creates the updater. The noise field is seeded
// from the injected random source so a fixed garden seed reproduces the
// same jitter history.
func NewEnvironmentUpdater(cfg *config.Config, rng *rand.Rand) *EnvironmentUpdater {
	return &EnvironmentUpdater{
		cfg:         cfg.Environment,
		window:      cfg.Weather.InterpolationWindowTicks,
		ticksPerDay: cfg.Garden.TicksPerDay,
		rng:         rng,
		noise:       opensimplex.New(rng.Int63()),
	}
}

// Update produces the environment for the given tick along with the
// blended weather modifiers the species systems should see this tick.
func (u *EnvironmentUpdater) Update(prev garden.Environment, tick int64) (garden.Environment, weather.Modifiers) {
	active := weather.Advance(prev.Weather, tick, u.window, u.rng)
	mods := weather.BlendedModifiers(active, u.window)

	phase := 2 * math.Pi * float64(tick%u.ticksPerDay) / float64(u.ticksPerDay)
	jitter := u.noise.Eval2(float64(tick)*u.cfg.NoiseScale, 0) * u.cfg.JitterAmplitude

	next := garden.Environment{
		Tick:        tick,
		Weather:     active,
		Temperature: u.cfg.BaseTemperature + u.cfg.DiurnalAmplitude*math.Sin(phase) + mods.TemperatureOffset + jitter,
		Sunlight:    clamp01(math.Max(0, math.Sin(phase)) * mods.SunlightMultiplier),
		Moisture:    clamp01(prev.Moisture + mods.MoistureDeltaPerTick),
	}
	return next, mods
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
