package main

import "github.com/kelseyhightower/envconfig"

// InspectConfig configures the read-only history viewer.
type InspectConfig struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"./data/badger"`
	Limit          int    `envconfig:"INSPECT_LIMIT" default:"50"`
	Colours        bool   `envconfig:"INSPECT_COLOURS" default:"true"`
}

func loadInspectConfig() (InspectConfig, error) {
	var cfg InspectConfig
	err := envconfig.Process("stroll", &cfg)
	return cfg, err
}
