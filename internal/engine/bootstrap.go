package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/AllStack11/chaos-garden-sub002/internal/config"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/entity"
	"github.com/AllStack11/chaos-garden-sub002/internal/domain/garden"
	"github.com/AllStack11/chaos-garden-sub002/internal/infra/storage"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/weather"
)

// SeedGarden plants the origin generation when the database holds no
// snapshot yet. An already-seeded garden is left untouched so restarts
// resume the persisted run instead of starting over.
func SeedGarden(ctx context.Context, cfg *config.Config, repo storage.GardenRepository, rng *rand.Rand, log *logger.Logger) error {
	_, err := repo.LatestGardenState(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNoGardenState) {
		return fmt.Errorf("checking for existing garden: %w", err)
	}

	bounds := Bounds{Width: cfg.Garden.Width, Height: cfg.Garden.Height}
	state := &garden.State{
		Tick:      0,
		Timestamp: time.Now().UTC(),
		Environment: garden.Environment{
			Temperature: cfg.Environment.BaseTemperature,
			Sunlight:    0.5,
			Moisture:    0.5,
			Tick:        0,
			Weather:     weather.NewActive(weather.Clear, weather.Clear, 0, rng),
		},
	}

	var ents []*entity.Entity
	spawn := func(n int, traits func() entity.Traits) {
		for i := 0; i < n; i++ {
			t := traits()
			x, y := bounds.Clamp(rng.Float64()*bounds.Width, rng.Float64()*bounds.Height)
			ents = append(ents, &entity.Entity{
				ID:      uuid.NewString(),
				Species: t.Species(),
				X:       x,
				Y:       y,
				Energy:  60,
				Health:  100,
				Alive:   true,
				Lineage: entity.LineageOrigin,
				Traits:  t,
			})
		}
	}

	// Origin traits jitter around the species baseline so the first
	// generation already carries some variance for selection to act on.
	around := func(base, spread float64) float64 {
		return base + (rng.Float64()*2-1)*spread
	}
	spawn(cfg.Garden.InitialPlants, func() entity.Traits {
		return entity.PlantTraits{
			PhotosynthesisRate: around(1.0, 0.2),
			ReproductionRate:   around(0.08, 0.02),
		}
	})
	spawn(cfg.Garden.InitialHerbivores, func() entity.Traits {
		return entity.HerbivoreTraits{
			MovementSpeed:       around(1.5, 0.3),
			PerceptionRadius:    around(10, 2),
			MetabolicEfficiency: around(1.0, 0.15),
			ReproductionRate:    around(0.05, 0.015),
		}
	})
	spawn(cfg.Garden.InitialCarnivores, func() entity.Traits {
		return entity.CarnivoreTraits{
			MovementSpeed:    around(2.0, 0.3),
			PerceptionRadius: around(14, 2),
			ReproductionRate: around(0.03, 0.01),
		}
	})
	spawn(cfg.Garden.InitialFungi, func() entity.Traits {
		return entity.FungusTraits{
			DecompositionRate: around(1.0, 0.2),
			ReproductionRate:  around(0.04, 0.015),
		}
	})

	pops := garden.PopulationSummary{
		PlantsLiving:     cfg.Garden.InitialPlants,
		HerbivoresLiving: cfg.Garden.InitialHerbivores,
		CarnivoresLiving: cfg.Garden.InitialCarnivores,
		FungiLiving:      cfg.Garden.InitialFungi,
	}
	pops.TotalLiving = pops.PlantsLiving + pops.HerbivoresLiving + pops.CarnivoresLiving + pops.FungiLiving
	state.Populations = pops

	if err := repo.SaveOrigin(ctx, state, ents); err != nil {
		return fmt.Errorf("saving origin generation: %w", err)
	}
	log.Infof("seeded garden with %d entities at tick 0", len(ents))
	return nil
}
