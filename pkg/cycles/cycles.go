// Copyright 2025 The cycleclock Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cycles reads the hardware cycle counter of the host.
//
// The package hides the architecture-specific counter instructions and
// registers behind one contract: a monotonically increasing 64-bit count and
// the rate at which it increments. Higher-level timing facilities convert
// counter deltas into wall-clock durations using the two together.
//
// Exactly one implementation is compiled in per target architecture; there is
// no runtime dispatch. On amd64 the counter is the time-stamp counter and the
// frequency is derived from processor identification data (memoized
// process-wide, see Frequency). On arm64 the generic counter-timer exposes
// both the count and the frequency directly.
package cycles

import "math"

// Source reads a hardware cycle counter.
type Source interface {
	// Count returns the current counter reading.
	Count() uint64

	// Frequency returns how often the counter increments, in Hz.
	Frequency() uint64

	// Start returns the value the counter holds immediately after a
	// rollover.
	Start() uint64

	// End returns the last value the counter holds before a rollover.
	End() uint64
}

// defaultBounds supplies the rollover bounds shared by counters that wrap
// across the full 64-bit range. Implementations embed it unless hardware
// deviates from the defaults.
type defaultBounds struct{}

// Start implements Source.Start.
func (defaultBounds) Start() uint64 {
	return 0
}

// End implements Source.End.
func (defaultBounds) End() uint64 {
	return math.MaxUint64
}

// Count returns the current reading of the host cycle counter.
func Count() uint64 {
	return Host.Count()
}

// Frequency returns the host cycle counter frequency in Hz.
func Frequency() uint64 {
	return Host.Frequency()
}

// Start returns the host counter value immediately after a rollover.
func Start() uint64 {
	return Host.Start()
}

// End returns the last host counter value before a rollover.
func End() uint64 {
	return Host.End()
}
