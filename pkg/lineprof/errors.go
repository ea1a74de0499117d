// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

import "errors"

// Error taxonomy (§7). Configuration errors map to CLI exit code 2;
// target-program errors are never wrapped, only observed; source-read and
// output-write errors are handled locally by the component that hit them.

// ErrAlreadyEnabled is returned by Enable when a profiling session is
// already active. Re-entrant Enable is forbidden (§9, "Global state").
var ErrAlreadyEnabled = errors.New("lineprof: profiler already enabled")

// ErrNotEnabled is returned by Disable when no session is active.
var ErrNotEnabled = errors.New("lineprof: profiler not enabled")

// ErrSamplingActive is returned when a caller tries to use the
// deterministic tracer and the statistical sampler in the same session;
// §4.5 requires them to be mutually exclusive.
var ErrSamplingActive = errors.New("lineprof: deterministic tracing and statistical sampling are mutually exclusive")

// ConfigError wraps a configuration problem detected before a profiling
// session starts (bad flag combination, missing target). The CLI layer
// maps this to exit code 2 (§7).
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return "lineprof: configuration error: " + e.Msg + ": " + e.Err.Error()
	}
	return "lineprof: configuration error: " + e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }
