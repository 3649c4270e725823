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
	"cycleclock.dev/cycleclock/pkg/atomicbitops"
	"cycleclock.dev/cycleclock/pkg/cpuid"
	"cycleclock.dev/cycleclock/pkg/log"
)

// qemuDefaultFrequency is used when CPUID-based frequency determination is
// not available. QEMU and other emulators report the standard NTSC
// colorburst frequency of the ACPI PM timer.
const qemuDefaultFrequency = 3579545

// cpuFrequency memoizes the derived TSC frequency in Hz. The zero value
// means "not yet computed"; once set, it holds for the process lifetime (the
// frequency is assumed constant for the machine's lifetime).
var cpuFrequency atomicbitops.Uint64

// deriveFrequency returns the TSC frequency in Hz, computing and caching it
// into cache on first use.
//
// Goroutines may race on first use: the derivation is pure and deterministic
// for fixed hardware, so racing writers store identical values and the only
// cost is redundant work. A stale zero read triggers one extra recomputation
// and self-corrects.
func deriveFrequency(fs cpuid.FeatureSet, cache *atomicbitops.Uint64) uint64 {
	// Fast path: a cache hit performs no identification queries.
	if f := cache.Load(); f != 0 {
		return f
	}

	// The base frequency leaf is too coarse to compute with; log it as an
	// advisory only. Leaf 0x15 below is authoritative.
	if mhz := fs.BaseFrequencyMHz(); mhz != 0 {
		log.Infof("CPU base frequency from leaf 0x16: %d MHz", mhz)
	}

	den, num, crystalHz := fs.TSCInfo()

	var frequency uint64
	if crystalHz == 0 || den == 0 || num == 0 {
		// The hardware or hypervisor does not enumerate CPUID-based
		// frequency determination; observed under emulation.
		if validateCPUFeatures {
			log.Warningf("CPU does not support CPUID-based frequency determination, assuming %d Hz", uint64(qemuDefaultFrequency))
		}
		frequency = qemuDefaultFrequency
	} else {
		// The ratio is computed with integer division before scaling.
		frequency = uint64(crystalHz) * uint64(num/den)
	}

	cache.Store(frequency)
	log.Infof("TSC frequency from leaf 0x15: %d Hz", frequency)

	return frequency
}
