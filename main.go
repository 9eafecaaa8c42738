package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"time"

	"golang.org/x/exp/slog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("isometrics", flag.ContinueOnError)
	config_file := flags.String("config", "./config.yaml", "config file")
	clean := flags.Bool("clean", false, "recompute cached graphs and sample points")
	quiet := flags.Bool("quiet", false, "log only warnings and errors to the console, receipts keep info records")
	points_per_sqkm := flags.Float64("points-per-sqkm", 0, "number of sample points per square kilometer")
	serve := flags.String("serve", "", "serve the http api on the given address")
	place := flags.String("place", "", "compute the isochrones of a single origin lon,lat")
	travel_time := flags.Float64("travel-time", 0, "travel time in minutes, overrides the configured ones")
	var cities StringsFlag
	flags.Var(&cities, "city", "city to process, repeatable, all if not set")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logger := NewLogger(os.Stdout, *quiet)
	slog.SetDefault(logger)

	config, err := ReadConfig(*config_file)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	if *points_per_sqkm > 0 {
		config.PointsPerSqkm = *points_per_sqkm
	}
	if *travel_time > 0 {
		config.TravelTimes = []float64{*travel_time}
	}
	selected, err := config.SelectCities(cities)
	if err != nil {
		logger.Error("invalid city selection", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	manager := NewIsometricsManager(config, *clean, *quiet, logger)

	switch {
	case *serve != "":
		if err := Serve(*serve, manager, logger); err != nil {
			logger.Error("server stopped", "error", err)
			return 1
		}
		return 0
	case *place != "":
		origin, err := ParsePlace(*place)
		if err != nil {
			logger.Error("invalid place", "error", err)
			return 2
		}
		if len(cities) != 1 {
			logger.Error("a place run needs exactly one -city")
			return 2
		}
		if err := manager.RunPlace(ctx, selected[0], origin); err != nil {
			logger.Error("place failed", "error", err)
			return 1
		}
		return 0
	}

	start := time.Now()
	failed := 0
	for _, name := range selected {
		if ctx.Err() != nil {
			break
		}
		if err := manager.RunCity(ctx, name); err != nil {
			failed += 1
			if errors.Is(err, ErrFatalConfig) {
				logger.Error("city aborted", "city", name, "error", err)
			} else {
				logger.Error("city failed", "city", name, "error", err)
			}
		}
	}
	logger.Info("finished", "cities", len(selected), "failed", failed, "elapsed", time.Since(start))
	if failed > 0 {
		return 1
	}
	return 0
}
