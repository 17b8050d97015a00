package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/sim"
)

// Summary is printed as JSON when the run finishes.
type Summary struct {
	Seed           int64           `json:"seed"`
	Frames         int64           `json:"frames"`
	SimTime        float64         `json:"sim_time"`
	Collisions     int             `json:"collisions"`
	WallHits       int             `json:"wall_hits"`
	InitialEnergy  float64         `json:"initial_kinetic_energy"`
	FinalEnergy    float64         `json:"final_kinetic_energy"`
	RestFrame      int64           `json:"rest_frame,omitempty"`
	WallClock      string          `json:"wall_clock"`
	FinalBallState []sim.BallState `json:"balls"`
}

func main() {
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for placement and initial velocities.")
	frames := flag.Int("frames", 3600, "Maximum number of frames to simulate.")
	dt := flag.Float64("dt", 1.0/60, "Fixed time step in seconds.")
	every := flag.Int("trace", 0, "Print every Nth frame as a JSON line (0 disables).")
	untilRest := flag.Bool("until-rest", true, "Stop as soon as every ball is at rest.")
	flag.Parse()

	godotenv.Load()
	cfg := config.Load()

	s, err := sim.NewSession("headless", cfg.Physics(), *seed, sim.OptionsFromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to set up table: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	summary := Summary{Seed: *seed, InitialEnergy: s.Frame().KineticEnergy}
	start := time.Now()

	var last sim.Frame
	for i := 0; i < *frames; i++ {
		f, err := s.Advance(*dt)
		if err != nil {
			log.Fatalf("Step %d failed: %v", i+1, err)
		}
		last = f
		summary.Collisions += f.Collisions
		summary.WallHits += f.WallHits

		if *every > 0 && f.Frame%int64(*every) == 0 {
			enc.Encode(f)
		}
		if f.AtRest && summary.RestFrame == 0 {
			summary.RestFrame = f.Frame
		}
		if f.AtRest && *untilRest {
			break
		}
	}

	summary.Frames = last.Frame
	summary.SimTime = last.SimTime
	summary.FinalEnergy = last.KineticEnergy
	summary.FinalBallState = last.Balls
	summary.WallClock = time.Since(start).String()

	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		log.Fatalf("Failed to write summary: %v", err)
	}
}
