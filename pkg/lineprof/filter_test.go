// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DataDog/dd-line-profiler/pkg/lineprof"
)

func TestFilterIncludeExcludeSysPathOrder(t *testing.T) {
	f := lineprof.NewFilter(
		[]string{"/app"},
		[]string{"/app/vendor"},
		[]string{"/usr/lib/python3"},
		true,
	)

	assert.True(t, f.Tracked("/app/main.demo"))
	assert.False(t, f.Tracked("/app/vendor/thing.demo"), "excluded overrides included")
	assert.False(t, f.Tracked("/usr/lib/python3/os.demo"), "outside include list")
	assert.False(t, f.Tracked("/other/file.demo"), "non-empty include list rejects unmatched paths")
}

func TestFilterAllowAll(t *testing.T) {
	f := lineprof.AllowAllFilter()
	assert.True(t, f.Tracked("/anything/at/all.demo"))
}

func TestFilterExcludeSysPathOnlyWhenRequested(t *testing.T) {
	f := lineprof.NewFilter(nil, nil, []string{"/usr/lib/python3"}, false)
	assert.True(t, f.Tracked("/usr/lib/python3/os.demo"), "exclude_syspath not requested")
}
