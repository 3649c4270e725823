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
	"testing"

	"cycleclock.dev/cycleclock/pkg/cpuid"
)

const (
	testTSCBit          = 1 << 4 // Leaf 0x1, edx.
	testInvariantTSCBit = 1 << 8 // Leaf 0x80000007, edx.
)

// featureStatic builds a Static identification function with the given
// capability bits.
func featureStatic(hasTSC, hasInvariantTSC bool) cpuid.Static {
	s := cpuid.Static{}
	if hasTSC {
		s.Set(cpuid.In{Eax: 0x1}, cpuid.Out{Edx: testTSCBit})
	}
	if hasInvariantTSC {
		s.Set(cpuid.In{Eax: 0x80000007}, cpuid.Out{Edx: testInvariantTSCBit})
	}
	return s
}

func TestCheckFeatures(t *testing.T) {
	for _, tc := range []struct {
		name            string
		hasTSC          bool
		hasInvariantTSC bool
		want            error
	}{
		{name: "supported", hasTSC: true, hasInvariantTSC: true, want: nil},
		{name: "no TSC", hasTSC: false, hasInvariantTSC: true, want: ErrNoTSC},
		{name: "no invariant TSC", hasTSC: true, hasInvariantTSC: false, want: ErrNoInvariantTSC},
		{name: "nothing", hasTSC: false, hasInvariantTSC: false, want: ErrNoTSC},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fs := featureStatic(tc.hasTSC, tc.hasInvariantTSC).ToFeatureSet()
			if got := checkFeatures(fs); got != tc.want {
				t.Errorf("checkFeatures got %v want %v", got, tc.want)
			}
		})
	}
}

func TestMustSupportAborts(t *testing.T) {
	// A missing capability bit must abort before any counter read is
	// issued; the panic unwinds out of the validation.
	fs := featureStatic(true, false).ToFeatureSet()

	defer func() {
		if got := recover(); got != ErrNoInvariantTSC {
			t.Errorf("panic value got %v want %v", got, ErrNoInvariantTSC)
		}
	}()
	mustSupport(fs)
	t.Errorf("mustSupport returned for unsupported hardware")
}

func TestMustSupportPasses(t *testing.T) {
	fs := featureStatic(true, true).ToFeatureSet()
	mustSupport(fs) // Must not panic.
}

func TestHostCheckFeatures(t *testing.T) {
	// Every amd64 processor this runs on has a TSC; the invariant bit may
	// legitimately be missing under emulation.
	err := CheckFeatures()
	if err == ErrNoTSC {
		t.Errorf("CheckFeatures = %v on amd64 host", err)
	}
	if err != nil {
		t.Logf("CheckFeatures: %v", err)
	}
}

func TestRdtsc(t *testing.T) {
	// The raw instruction must advance between serialized reads.
	first := rdtsc()
	second := rdtsc()
	if second < first {
		t.Errorf("rdtsc went backwards: %d < %d", second, first)
	}
}
