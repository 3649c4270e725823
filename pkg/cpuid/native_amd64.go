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

package cpuid

// cpuidFunction is a useful type wrapper. The format is eax | (ecx << 32).
type cpuidFunction uint64

func (f cpuidFunction) eax() uint32 {
	return uint32(f)
}

func (f cpuidFunction) ecx() uint32 {
	return uint32(f >> 32)
}

// The constants below are the lower or "standard" cpuid functions, ordered as
// defined by the hardware. Note that these may not be included in the standard
// set of functions that we are allowed to execute, which are filtered in the
// Native.Query function defined below.
const (
	vendorID      cpuidFunction = 0x0  // Returns vendor ID and largest standard function.
	featureInfo   cpuidFunction = 0x1  // Returns basic feature bits and processor signature.
	tscInfo       cpuidFunction = 0x15 // Returns TSC/crystal clock ratio and crystal frequency.
	frequencyInfo cpuidFunction = 0x16 // Returns processor base/max frequency. Informational only.
)

// The "extended" functions.
const (
	extendedStart        cpuidFunction = 0x80000000
	extendedFunctionInfo cpuidFunction = extendedStart + 0 // Returns highest available extended function in eax.
	powerInfo            cpuidFunction = extendedStart + 7 // Returns advanced power management information.
)

var allowedBasicFunctions = [...]bool{
	vendorID:      true,
	featureInfo:   true,
	tscInfo:       true,
	frequencyInfo: true,
}

var allowedExtendedFunctions = [...]bool{
	extendedFunctionInfo - extendedStart: true,
	powerInfo - extendedStart:            true,
}

// Feature bits checked by the counter core.
const (
	// tscBit is in edx of the featureInfo leaf: the processor supports the
	// RDTSC instruction.
	tscBit = 1 << 4

	// invariantTSCBit is in edx of the powerInfo leaf: the TSC increments
	// at a constant rate regardless of power state transitions.
	invariantTSCBit = 1 << 8
)

// normalize drops irrelevant Ecx values.
func (i *In) normalize() {
	switch cpuidFunction(i.Eax) {
	case vendorID, featureInfo, tscInfo, frequencyInfo, extendedFunctionInfo, powerInfo:
		i.Ecx = 0 // Ignore.
	}
}

// Native is a native Function.
//
// This implements Function.
type Native struct{}

// native is the native Query function.
func native(in In) Out

// Query executes CPUID natively.
//
// This implements Function.
//
//go:nosplit
func (*Native) Query(in In) Out {
	if int(in.Eax) < len(allowedBasicFunctions) && allowedBasicFunctions[in.Eax] {
		return native(in)
	} else if in.Eax >= uint32(extendedStart) {
		if l := int(in.Eax - uint32(extendedStart)); l < len(allowedExtendedFunctions) && allowedExtendedFunctions[l] {
			return native(in)
		}
	}
	return Out{} // All zeros.
}

// FeatureSet answers capability and parameter queries against an underlying
// identification Function.
type FeatureSet struct {
	// Function is the underlying CPUID Function.
	//
	// This is exported to allow direct calls of the underlying CPUID
	// function, where required.
	Function
}

// query is a internal wrapper.
//
//go:nosplit
func (fs FeatureSet) query(fn cpuidFunction) (uint32, uint32, uint32, uint32) {
	out := fs.Query(In{Eax: fn.eax(), Ecx: fn.ecx()})
	return out.Eax, out.Ebx, out.Ecx, out.Edx
}

// HasTSC returns true if the processor supports the RDTSC instruction.
//
//go:nosplit
func (fs FeatureSet) HasTSC() bool {
	_, _, _, dx := fs.query(featureInfo)
	return dx&tscBit != 0
}

// HasInvariantTSC returns true if the TSC has the invariant property: a
// constant increment rate independent of processor power and frequency
// states.
//
//go:nosplit
func (fs FeatureSet) HasInvariantTSC() bool {
	_, _, _, dx := fs.query(powerInfo)
	return dx&invariantTSCBit != 0
}

// TSCInfo returns the TSC/crystal clock ratio (denominator, numerator) and
// the crystal clock frequency in Hz from the tscInfo leaf.
//
// A zero crystal frequency means the hardware (or hypervisor) does not
// enumerate CPUID-based frequency determination.
//
//go:nosplit
func (fs FeatureSet) TSCInfo() (denominator, numerator, crystalHz uint32) {
	ax, bx, cx, _ := fs.query(tscInfo)
	return ax, bx, cx
}

// BaseFrequencyMHz returns the processor base frequency in MHz from the
// frequencyInfo leaf, or 0 if not enumerated. The granularity is too coarse
// for timing use; TSCInfo is authoritative.
//
//go:nosplit
func (fs FeatureSet) BaseFrequencyMHz() uint32 {
	ax, _, _, _ := fs.query(frequencyInfo)
	return ax & 0xffff
}

var hostFeatureSet = FeatureSet{
	Function: &Native{},
}

// HostFeatureSet returns a host CPUID.
//
//go:nosplit
func HostFeatureSet() FeatureSet {
	return hostFeatureSet
}
