// Package telemetry exports per-tick ecosystem statistics to CSV for
// offline analysis. Export is optional; an empty output directory
// disables it entirely.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
)

// TickRow is one CSV record summarizing the garden after a tick.
type TickRow struct {
	Tick        int64   `csv:"tick"`
	Timestamp   string  `csv:"timestamp"`
	Weather     string  `csv:"weather"`
	Temperature float64 `csv:"temperature"`
	Sunlight    float64 `csv:"sunlight"`
	Moisture    float64 `csv:"moisture"`

	Plants     int `csv:"plants"`
	Herbivores int `csv:"herbivores"`
	Carnivores int `csv:"carnivores"`
	Fungi      int `csv:"fungi"`
	TotalDead  int `csv:"total_dead"`

	PlantEnergyMean     float64 `csv:"plant_energy_mean"`
	PlantEnergyStd      float64 `csv:"plant_energy_std"`
	HerbivoreEnergyMean float64 `csv:"herbivore_energy_mean"`
	HerbivoreEnergyStd  float64 `csv:"herbivore_energy_std"`
	CarnivoreEnergyMean float64 `csv:"carnivore_energy_mean"`
	CarnivoreEnergyStd  float64 `csv:"carnivore_energy_std"`
	FungusEnergyMean    float64 `csv:"fungus_energy_mean"`
	FungusEnergyStd     float64 `csv:"fungus_energy_std"`
}

// Exporter appends tick rows to a timestamped CSV file.
type Exporter struct {
	path string
	rows []*TickRow
}

// NewExporter prepares an exporter writing under dir. Returns nil when dir
// is empty, which callers treat as telemetry disabled.
func NewExporter(dir string) (*Exporter, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	name := fmt.Sprintf("garden_%s.csv", time.Now().UTC().Format("20060102_150405"))
	return &Exporter{path: filepath.Join(dir, name)}, nil
}

// Record buffers one tick's row. Energy statistics only cover the living.
func (x *Exporter) Record(state *garden.State, ents []*entity.Entity) {
	row := &TickRow{
		Tick:        state.Tick,
		Timestamp:   state.Timestamp.Format(time.RFC3339),
		Weather:     string(state.Environment.Weather.State),
		Temperature: state.Environment.Temperature,
		Sunlight:    state.Environment.Sunlight,
		Moisture:    state.Environment.Moisture,
		Plants:      state.Populations.PlantsLiving,
		Herbivores:  state.Populations.HerbivoresLiving,
		Carnivores:  state.Populations.CarnivoresLiving,
		Fungi:       state.Populations.FungiLiving,
		TotalDead:   state.Populations.TotalDead,
	}

	row.PlantEnergyMean, row.PlantEnergyStd = energyStats(ents, entity.SpeciesPlant)
	row.HerbivoreEnergyMean, row.HerbivoreEnergyStd = energyStats(ents, entity.SpeciesHerbivore)
	row.CarnivoreEnergyMean, row.CarnivoreEnergyStd = energyStats(ents, entity.SpeciesCarnivore)
	row.FungusEnergyMean, row.FungusEnergyStd = energyStats(ents, entity.SpeciesFungus)

	x.rows = append(x.rows, row)
}

// Flush writes all buffered rows out, overwriting the file so the CSV is
// always complete up to the last flushed tick.
func (x *Exporter) Flush() error {
	f, err := os.Create(x.path)
	if err != nil {
		return fmt.Errorf("opening telemetry file: %w", err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&x.rows, f); err != nil {
		return fmt.Errorf("writing telemetry rows: %w", err)
	}
	return nil
}

func energyStats(ents []*entity.Entity, species entity.Species) (mean, std float64) {
	var energies []float64
	for _, e := range ents {
		if e.Species == species && !e.Dead() {
			energies = append(energies, e.Energy)
		}
	}
	if len(energies) == 0 {
		return 0, 0
	}
	mean = stat.Mean(energies, nil)
	if len(energies) > 1 {
		std = stat.StdDev(energies, nil)
	}
	return mean, std
}
