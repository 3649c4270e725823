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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStaticQueryNormalizesEcx(t *testing.T) {
	s := Static{}.Set(In{Eax: uint32(tscInfo)}, Out{Eax: 2, Ebx: 200, Ecx: 24000000})

	// The subleaf value is irrelevant for this function and must be
	// dropped before lookup.
	got := s.Query(In{Eax: uint32(tscInfo), Ecx: 5})
	want := Out{Eax: 2, Ebx: 200, Ecx: 24000000}
	if got != want {
		t.Errorf("Query got %+v want %+v", got, want)
	}
}

func TestStaticUnknownLeafIsZero(t *testing.T) {
	s := Static{}
	if got := s.Query(In{Eax: 0xdeadbeef}); got != (Out{}) {
		t.Errorf("Query of unknown leaf got %+v want all zeros", got)
	}
}

func TestNativeDisallowedLeafIsZero(t *testing.T) {
	var n Native
	if got := n.Query(In{Eax: 0x3}); got != (Out{}) {
		t.Errorf("Query of disallowed leaf got %+v want all zeros", got)
	}
}

func TestHostHasTSC(t *testing.T) {
	// Every amd64 processor that can run this test has a TSC.
	if !HostFeatureSet().HasTSC() {
		t.Errorf("HostFeatureSet reports no TSC")
	}
}

func TestHostVendorLeaf(t *testing.T) {
	// The vendor leaf must report a non-zero largest standard function.
	out := HostFeatureSet().Query(In{Eax: uint32(vendorID)})
	if out.Eax == 0 {
		t.Errorf("vendor leaf reports largest standard function 0")
	}
}

func TestToStaticRoundTrip(t *testing.T) {
	s := HostFeatureSet().ToStatic()
	s2 := s.ToFeatureSet().ToStatic()
	if diff := cmp.Diff(s, s2); diff != "" {
		t.Errorf("static sets differ after round trip (-first +second):\n%s", diff)
	}
}

func TestStaticMatchesHost(t *testing.T) {
	// A static snapshot must answer capability queries identically to the
	// native function it was captured from.
	host := HostFeatureSet()
	static := host.ToStatic().ToFeatureSet()

	if got, want := static.HasTSC(), host.HasTSC(); got != want {
		t.Errorf("HasTSC got %v want %v", got, want)
	}
	if got, want := static.HasInvariantTSC(), host.HasInvariantTSC(); got != want {
		t.Errorf("HasInvariantTSC got %v want %v", got, want)
	}
	gd, gn, gc := static.TSCInfo()
	wd, wn, wc := host.TSCInfo()
	if gd != wd || gn != wn || gc != wc {
		t.Errorf("TSCInfo got (%d, %d, %d) want (%d, %d, %d)", gd, gn, gc, wd, wn, wc)
	}
}
