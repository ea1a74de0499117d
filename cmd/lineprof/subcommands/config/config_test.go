// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExecuteWritesYAMLDefaults(t *testing.T) {
	log := zap.NewNop().Sugar()
	dir := t.TempDir()
	var buf bytes.Buffer

	require.NoError(t, Execute(log, ".lineprof", []string{dir}, &buf))
	assert.Contains(t, buf.String(), "propagate_threads")
	assert.Contains(t, buf.String(), "sampler_period")
}
