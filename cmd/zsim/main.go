package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/profile"

	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/log"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	ticks := flag.Int("ticks", 600, "number of fixed steps to simulate")
	profileMode := flag.String("profile", "", "write a profile to the working directory: cpu or mem")
	watch := flag.Bool("watch", false, "reload templates from the prefab dir while running")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *watch {
		cfg.Prefabs.Watch = true
	}

	level, ok := log.ParseLevel(cfg.Log.Level)
	base := log.New(level, cfg.Log.Encoding)
	defer base.Sync()
	logger := base.With(log.String("session", uuid.NewString()))
	if !ok {
		logger.Warn("unknown log level, using info", log.String("level", cfg.Log.Level))
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		logger.Error("unknown profile mode", log.String("mode", *profileMode))
		os.Exit(2)
	}

	sim, err := newSimulation(cfg, logger)
	if err != nil {
		logger.Error("setup failed", log.Error(err))
		os.Exit(1)
	}
	defer sim.Close()

	if err := sim.Run(*ticks); err != nil {
		logger.Error("simulation failed", log.Error(err))
		os.Exit(1)
	}
}
