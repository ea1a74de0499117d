// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/dd-line-profiler/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(".lineprof", []string{dir})
	require.NoError(t, err)
	assert.True(t, cfg.PropagateThreads)
	assert.Equal(t, time.Millisecond, cfg.SamplerPeriod)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("propagate_threads: false\nsampler_period: 5ms\nfilter:\n  include:\n    - /app\n  exclude_syspath: true\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".lineprof.yaml"), content, 0o644))

	cfg, err := config.Load(".lineprof", []string{dir})
	require.NoError(t, err)
	assert.False(t, cfg.PropagateThreads)
	assert.Equal(t, []string{"/app"}, cfg.Filter.Include)
	assert.True(t, cfg.Filter.ExcludeSysPath)
}
