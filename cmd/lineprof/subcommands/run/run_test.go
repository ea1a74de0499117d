// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package run

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveFormatCachegrindPrefixForcesCallgrind(t *testing.T) {
	format, out := resolveFormat("text", "/tmp/cachegrind.out.1234")
	assert.Equal(t, "callgrind", format)
	assert.Equal(t, "/tmp/cachegrind.out.1234", out)
}

func TestResolveFormatDefaultsToText(t *testing.T) {
	format, out := resolveFormat("", "/tmp/report.txt")
	assert.Equal(t, "text", format)
	assert.Equal(t, "/tmp/report.txt", out)
}

func TestExecuteRejectsUnknownProgram(t *testing.T) {
	log := zap.NewNop().Sugar()
	var buf bytes.Buffer
	err := Execute(log, &Options{Program: "not-a-program"}, nil, &buf)
	assert.Error(t, err)
}

func TestExecuteWritesTextReportForFib(t *testing.T) {
	log := zap.NewNop().Sugar()
	var buf bytes.Buffer
	opts := &Options{Program: "fib", Format: "text", Threads: 1, FibN: 8}
	require.NoError(t, Execute(log, opts, nil, &buf))
	assert.Contains(t, buf.String(), "File: fib.demo")
}

func TestExecuteWritesCallgrindReportForSleeper(t *testing.T) {
	log := zap.NewNop().Sugar()
	var buf bytes.Buffer
	opts := &Options{Program: "sleeper", Format: "callgrind", Threads: 1, Duration: 5 * time.Millisecond}
	require.NoError(t, Execute(log, opts, nil, &buf))
	assert.Contains(t, buf.String(), "# callgrind format")
}

func TestApplyConfigDefaultsFillsUnsetFlags(t *testing.T) {
	dir := t.TempDir()
	content := "filter:\n  exclude_syspath: true\n  include:\n    - \"*.demo\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".lineprof.yaml"), []byte(content), 0o644))

	cmd := NewCommand(zap.NewNop().Sugar())
	require.NoError(t, cmd.Flags().Set("config-path", dir))

	opts := &Options{ConfigName: ".lineprof", ConfigPath: []string{dir}}
	applyConfigDefaults(cmd, opts)

	assert.True(t, opts.ExcludeSysPath)
	assert.Equal(t, []string{"*.demo"}, opts.Include)
}

func TestApplyConfigDefaultsDoesNotOverrideExplicitFlag(t *testing.T) {
	dir := t.TempDir()
	content := "filter:\n  exclude_syspath: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".lineprof.yaml"), []byte(content), 0o644))

	cmd := NewCommand(zap.NewNop().Sugar())
	require.NoError(t, cmd.Flags().Set("exclude-syspath", "false"))
	require.NoError(t, cmd.Flags().Set("config-path", dir))

	opts := &Options{ExcludeSysPath: false, ConfigName: ".lineprof", ConfigPath: []string{dir}}
	applyConfigDefaults(cmd, opts)

	assert.False(t, opts.ExcludeSysPath)
}

func TestExecuteStatisticalModeSkipsTracer(t *testing.T) {
	log := zap.NewNop().Sugar()
	var buf bytes.Buffer
	opts := &Options{
		Program:      "busyloop",
		Format:       "text",
		Threads:      1,
		StatisticSec: 0.005,
		Duration:     60 * time.Millisecond,
	}
	require.NoError(t, Execute(log, opts, nil, &buf))
	assert.Contains(t, buf.String(), "File: busyloop.demo")
}
