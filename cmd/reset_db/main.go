package main

import (
	"context"
	"fmt"

	"freightdispatch/config"
	"freightdispatch/pkg/logger"
	"freightdispatch/storage/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)
	pg, err := postgres.New(context.Background(), cfg, log, nil)

	if err != nil {
		panic(err)
	}
	defer pg.Close()

	// Truncate the load domain and the fleet. CASCADE cleans up stops,
	// tracking_events and proof_of_deliveries through their foreign keys.
	store := pg.(*postgres.Store)
	_, err = store.GetPool().Exec(context.Background(), "TRUNCATE TABLE loads, drivers, vehicles CASCADE")
	if err != nil {
		log.Error(fmt.Sprintf("Failed to truncate tables: %v", err))
	} else {
		log.Info("Successfully truncated loads, drivers, and vehicles tables.")
	}
}
