// Package config provides configuration loading and access for the garden simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation tuning parameters.
type Config struct {
	Garden      GardenConfig      `yaml:"garden"`
	Environment EnvironmentConfig `yaml:"environment"`
	Weather     WeatherConfig     `yaml:"weather"`
	Plant       PlantConfig       `yaml:"plant"`
	Herbivore   HerbivoreConfig   `yaml:"herbivore"`
	Carnivore   CarnivoreConfig   `yaml:"carnivore"`
	Fungus      FungusConfig      `yaml:"fungus"`
	Mutation    MutationConfig    `yaml:"mutation"`
	Starvation  StarvationConfig  `yaml:"starvation"`
	Server      ServerConfig      `yaml:"server"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// GardenConfig holds world bounds and clock parameters.
type GardenConfig struct {
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	TicksPerDay int64   `yaml:"ticks_per_day"` // Length of one diurnal cycle
	Seed        int64   `yaml:"seed"`          // RNG seed (0 = time-based)

	InitialPlants     int `yaml:"initial_plants"`
	InitialHerbivores int `yaml:"initial_herbivores"`
	InitialCarnivores int `yaml:"initial_carnivores"`
	InitialFungi      int `yaml:"initial_fungi"`
}

// EnvironmentConfig holds diurnal cycle and jitter parameters.
type EnvironmentConfig struct {
	BaseTemperature  float64 `yaml:"base_temperature"`  // Celsius baseline
	DiurnalAmplitude float64 `yaml:"diurnal_amplitude"` // Temperature swing around baseline
	JitterAmplitude  float64 `yaml:"jitter_amplitude"`  // Max absolute noise contribution
	NoiseScale       float64 `yaml:"noise_scale"`       // Noise field frequency over ticks
}

// WeatherConfig holds weather machine tuning.
type WeatherConfig struct {
	InterpolationWindowTicks int64 `yaml:"interpolation_window_ticks"`
}

// PlantConfig holds plant behavior parameters.
type PlantConfig struct {
	PhotosynthesisScale   float64 `yaml:"photosynthesis_scale"`   // Energy per tick at full sun, rate 1.0
	IdealMoisture         float64 `yaml:"ideal_moisture"`         // Moisture with peak growth
	MoistureMultiplierMin float64 `yaml:"moisture_multiplier_min"`
	MoistureMultiplierMax float64 `yaml:"moisture_multiplier_max"`
	BaseCost              float64 `yaml:"base_cost"` // Metabolic drain per tick
	ReproductionThreshold float64 `yaml:"reproduction_threshold"`
	ReproductionCost      float64 `yaml:"reproduction_cost"`
	MaxReproductiveAge    int64   `yaml:"max_reproductive_age"`
	MaxLifespan           int64   `yaml:"max_lifespan"`
}

// HerbivoreConfig holds herbivore behavior parameters.
type HerbivoreConfig struct {
	EatDistance           float64 `yaml:"eat_distance"`
	EnergyTransferCap     float64 `yaml:"energy_transfer_cap"` // Max energy gained per plant eaten
	MoveCostPerUnit       float64 `yaml:"move_cost_per_unit"`
	IdleCost              float64 `yaml:"idle_cost"` // Wandering penalty when no plant in range
	BaseCost              float64 `yaml:"base_cost"` // Metabolic drain per tick
	ReproductionThreshold float64 `yaml:"reproduction_threshold"`
	ReproductionCost      float64 `yaml:"reproduction_cost"`
	MaxReproductiveAge    int64   `yaml:"max_reproductive_age"`
	MaxLifespan           int64   `yaml:"max_lifespan"`
}

// CarnivoreConfig holds the hunting state machine parameters.
type CarnivoreConfig struct {
	HuntingDistance       float64 `yaml:"hunting_distance"` // Kill range
	AmbushRadius          float64 `yaml:"ambush_radius"`    // Stalking range
	CoordinationRadius    float64 `yaml:"coordination_radius"`
	AbandonAfterTicks     int     `yaml:"abandon_after_ticks"`
	HighEnergyThreshold   float64 `yaml:"high_energy_threshold"`
	RestSpeedFactor       float64 `yaml:"rest_speed_factor"`
	RestCostFactor        float64 `yaml:"rest_cost_factor"`
	StalkSpeedFactor      float64 `yaml:"stalk_speed_factor"`
	StalkCostFactor       float64 `yaml:"stalk_cost_factor"`
	ChaseCostFactor       float64 `yaml:"chase_cost_factor"`
	ExploreCostFactor     float64 `yaml:"explore_cost_factor"`
	MoveCostPerUnit       float64 `yaml:"move_cost_per_unit"`
	BaseCost              float64 `yaml:"base_cost"`
	EnergyGainCap         float64 `yaml:"energy_gain_cap"` // Max energy gained per kill
	HealthRecovery        float64 `yaml:"health_recovery"` // Health restored by a kill
	CarcassHealthFraction float64 `yaml:"carcass_health_fraction"`
	ReproductionThreshold float64 `yaml:"reproduction_threshold"`
	ReproductionCost      float64 `yaml:"reproduction_cost"`
	MaxReproductiveAge    int64   `yaml:"max_reproductive_age"`
	MaxLifespan           int64   `yaml:"max_lifespan"`
}

// FungusConfig holds decomposer behavior parameters.
type FungusConfig struct {
	DecomposeRadius       float64 `yaml:"decompose_radius"`
	ConversionEfficiency  float64 `yaml:"conversion_efficiency"` // Carcass energy -> fungus energy
	IntakeCap             float64 `yaml:"intake_cap"`            // Max carcass energy drawn per tick
	BaseCost              float64 `yaml:"base_cost"`
	ReproductionThreshold float64 `yaml:"reproduction_threshold"`
	ReproductionCost      float64 `yaml:"reproduction_cost"`
	MaxReproductiveAge    int64   `yaml:"max_reproductive_age"`
	MaxLifespan           int64   `yaml:"max_lifespan"`
}

// MutationConfig holds trait drift parameters.
type MutationConfig struct {
	Probability float64 `yaml:"probability"` // Per-trait mutation chance
	Range       float64 `yaml:"range"`       // Max absolute perturbation
	SpawnOffset float64 `yaml:"spawn_offset"`
}

// StarvationConfig holds the two-pool starvation model parameters.
// Energy hitting zero never kills on its own; it drains health until
// the second pool also reaches zero.
type StarvationConfig struct {
	HealthDecayPerTick float64 `yaml:"health_decay_per_tick"`
	SenescenceDecay    float64 `yaml:"senescence_decay"` // Health drain past max lifespan
}

// ServerConfig holds process wiring parameters.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	DBPath       string `yaml:"db_path"`
	TickInterval int    `yaml:"tick_interval_seconds"`
}

// TelemetryConfig holds CSV export parameters.
type TelemetryConfig struct {
	OutputDir string `yaml:"output_dir"` // Empty disables export
}

// Load reads configuration from a YAML file merged over embedded defaults.
// An empty path uses defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
