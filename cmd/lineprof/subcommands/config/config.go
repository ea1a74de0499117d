// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Package config implements `lineprof config`, SPEC_FULL.md's
// SUPPLEMENTED FEATURES item 1: a dump of the effective filter policy and
// sampler defaults, for operators debugging why a file didn't show up in
// a report.
package config

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	intcfg "github.com/DataDog/dd-line-profiler/internal/config"
)

// NewCommand builds the `config` subcommand.
func NewCommand(log *zap.SugaredLogger) *cobra.Command {
	var name string
	var paths []string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective filter policy and sampler defaults as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(log, name, paths, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&name, "config-name", ".lineprof", "Config file base name (without extension)")
	cmd.Flags().StringArrayVar(&paths, "config-path", []string{"."}, "Directory to search for the config file (repeatable)")

	return cmd
}

// Execute loads the effective config and writes it as YAML to w.
func Execute(log *zap.SugaredLogger, name string, paths []string, w io.Writer) error {
	defaults, err := intcfg.Load(name, paths)
	if err != nil {
		log.Warnw("failed to load config file", "error", err)
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(defaults)
}
