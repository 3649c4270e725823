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

//go:build amd64
// +build amd64

package cycles

import (
	"errors"
	"sync"

	"cycleclock.dev/cycleclock/pkg/cpuid"
)

// Errors returned by CheckFeatures.
var (
	// ErrNoTSC means the processor does not support the RDTSC
	// instruction.
	ErrNoTSC = errors.New("CPU does not support TSC")

	// ErrNoInvariantTSC means the TSC rate varies with processor power
	// and frequency states, making it unusable for timing.
	ErrNoInvariantTSC = errors.New("CPU does not support invariant TSC")
)

// rdtsc reads the TSC.
//
// Intel SDM, Vol 3, Ch 17.15:
// "The RDTSC instruction reads the time-stamp counter and is guaranteed to
// return a monotonically increasing unique value whenever executed, except
// for a 64-bit counter wraparound."
func rdtsc() uint64

// TSC is the time-stamp counter cycle source.
//
// This implements Source.
type TSC struct {
	defaultBounds
}

// Host is the cycle source for the build target.
var Host TSC

var _ Source = Host

// checkOnce guards the validating build's feature check, which runs before
// the first counter read.
var checkOnce sync.Once

// Count implements Source.Count.
func (TSC) Count() uint64 {
	if validateCPUFeatures {
		checkOnce.Do(func() { mustSupport(cpuid.HostFeatureSet()) })
	}
	return rdtsc()
}

// Frequency implements Source.Frequency.
func (TSC) Frequency() uint64 {
	return deriveFrequency(cpuid.HostFeatureSet(), &cpuFrequency)
}

// checkFeatures returns an error if fs lacks the TSC or its invariant
// property.
func checkFeatures(fs cpuid.FeatureSet) error {
	if !fs.HasTSC() {
		return ErrNoTSC
	}
	if !fs.HasInvariantTSC() {
		return ErrNoInvariantTSC
	}
	return nil
}

// CheckFeatures validates that the host time-stamp counter is usable for
// timing. Callers that prefer a recoverable error over the validating
// build's abort may call this before the first Count.
func CheckFeatures() error {
	return checkFeatures(cpuid.HostFeatureSet())
}

// mustSupport aborts if the counter cannot be trusted for timing.
func mustSupport(fs cpuid.FeatureSet) {
	if err := checkFeatures(fs); err != nil {
		panic(err)
	}
}

// defaultOverheadCycles is the default estimated reference clock sample
// overhead in TSC cycles. It is further refined as samples are collected.
const defaultOverheadCycles = 1 * 1000

// maxOverheadCycles is the maximum allowed sample overhead in TSC cycles.
const maxOverheadCycles = 100 * defaultOverheadCycles
