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

//go:build arm64
// +build arm64

package cycles

import (
	"cycleclock.dev/cycleclock/pkg/cpuid"
	"cycleclock.dev/cycleclock/pkg/log"
)

// cntpct reads the physical counter-timer register CNTPCT_EL0.
func cntpct() uint64

// cntfrq reads the counter-timer frequency register CNTFRQ_EL0.
func cntfrq() uint64

// GenericTimer is the ARM generic counter-timer cycle source.
//
// This implements Source.
type GenericTimer struct {
	defaultBounds
}

// Host is the cycle source for the build target.
var Host GenericTimer

var _ Source = Host

// Count implements Source.Count. The counter register is always present on
// this platform and cheap to read, so no validation applies.
func (GenericTimer) Count() uint64 {
	return cntpct()
}

// Frequency implements Source.Frequency. The read is a single register
// access with no derivation cost, so no caching applies.
func (GenericTimer) Frequency() uint64 {
	return cntfrq()
}

// getDefaultArchOverheadCycles computes the default sample overhead from the
// counter-timer frequency. The counter usually runs at 1-50MHz, much lower
// than the ~GHz TSC rates on x86, so the x86 default is scaled down by the
// frequency ratio.
func getDefaultArchOverheadCycles() uint64 {
	frq := cntfrq()
	if frq == 0 {
		return 1
	}
	frqRatio := 1000000000 / frq
	if frqRatio == 0 {
		// Counter runs at 1GHz or above, same ballpark as x86.
		return 1 * 1000
	}
	overheadCycles := (1 * 1000) / frqRatio
	if overheadCycles == 0 {
		overheadCycles = 1
	}
	return overheadCycles
}

// defaultOverheadCycles is the default estimated reference clock sample
// overhead in counter cycles. It is further refined as samples are collected.
var defaultOverheadCycles = getDefaultArchOverheadCycles()

// maxOverheadCycles is the maximum allowed sample overhead in counter cycles.
var maxOverheadCycles = 100 * defaultOverheadCycles

func init() {
	if log.IsLogging(log.Debug) {
		log.Debugf("Generic timer: %d Hz, event stream: %t", cntfrq(), cpuid.HostFeatureSet().HasFeature(cpuid.HWCAP_EVTSTRM))
	}
}
