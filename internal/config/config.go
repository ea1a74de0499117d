// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Package config loads the profiler's filter-policy and sampler defaults
// from an optional on-disk file, layered under the CLI flags described in
// spec.md §6. This is additive to the spec: the file is never required,
// and every setting it carries can be overridden on the command line.
package config

import (
	"time"

	"github.com/DataDog/viper"
)

// FilterPolicy mirrors lineprof.Filter's inputs in a form viper can
// unmarshal from YAML (§4.9).
type FilterPolicy struct {
	Include        []string `mapstructure:"include" yaml:"include"`
	Exclude        []string `mapstructure:"exclude" yaml:"exclude"`
	SysPaths       []string `mapstructure:"syspaths" yaml:"syspaths"`
	ExcludeSysPath bool     `mapstructure:"exclude_syspath" yaml:"exclude_syspath"`
}

// Defaults holds config-file-sourced defaults for flags the CLI doesn't
// see explicitly set (§6's options table plus SPEC_FULL.md's additions).
type Defaults struct {
	Filter           FilterPolicy  `mapstructure:"filter" yaml:"filter"`
	SamplerPeriod    time.Duration `mapstructure:"sampler_period" yaml:"sampler_period"`
	PropagateThreads bool          `mapstructure:"propagate_threads" yaml:"propagate_threads"`
}

// defaultConfig is used whenever no config file is found; it matches §6's
// documented CLI defaults (text format, --threads 1, 1ms sampler period).
func defaultConfig() Defaults {
	return Defaults{
		PropagateThreads: true,
		SamplerPeriod:    time.Millisecond,
	}
}

// Load reads name (if it exists) from any of the given search paths using
// viper, falling back to defaultConfig() when no file is present. A
// missing file is not an error (§6's options are all optional); a file
// that exists but fails to parse is a configuration error (§7).
func Load(name string, searchPaths []string) (Defaults, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	cfg := defaultConfig()
	v.SetDefault("propagate_threads", cfg.PropagateThreads)
	v.SetDefault("sampler_period", cfg.SamplerPeriod)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
