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
	"sync"
	"testing"

	"cycleclock.dev/cycleclock/pkg/atomicbitops"
	"cycleclock.dev/cycleclock/pkg/cpuid"
)

// tscStatic builds a Static identification function with the given TSC ratio
// leaf values: eax=denominator, ebx=numerator, ecx=crystal clock Hz.
func tscStatic(den, num, crystalHz uint32) cpuid.Static {
	return cpuid.Static{}.Set(
		cpuid.In{Eax: 0x15},
		cpuid.Out{Eax: den, Ebx: num, Ecx: crystalHz},
	)
}

func TestDeriveFrequencyRatio(t *testing.T) {
	// 24MHz crystal scaled by 200/2 is 2.4GHz.
	fs := tscStatic(2, 200, 24000000).ToFeatureSet()
	var cache atomicbitops.Uint64

	const want = 2400000000
	if got := deriveFrequency(fs, &cache); got != want {
		t.Errorf("deriveFrequency got %d want %d", got, want)
	}
	if got := cache.Load(); got != want {
		t.Errorf("cache value got %d want %d", got, want)
	}
}

func TestDeriveFrequencyFallback(t *testing.T) {
	// Zero crystal clock frequency: CPUID-based determination is not
	// enumerated, so the fixed fallback applies and gets cached.
	fs := tscStatic(2, 200, 0).ToFeatureSet()
	var cache atomicbitops.Uint64

	if got := deriveFrequency(fs, &cache); got != qemuDefaultFrequency {
		t.Errorf("deriveFrequency got %d want %d", got, uint64(qemuDefaultFrequency))
	}
	if got := cache.Load(); got != qemuDefaultFrequency {
		t.Errorf("cache value got %d want %d", got, uint64(qemuDefaultFrequency))
	}
}

func TestDeriveFrequencyRatioNotEnumerated(t *testing.T) {
	// A crystal frequency with a zero ratio denominator or numerator is
	// equally unusable.
	for _, tc := range []struct {
		name     string
		den, num uint32
	}{
		{name: "zero denominator", den: 0, num: 200},
		{name: "zero numerator", den: 2, num: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fs := tscStatic(tc.den, tc.num, 24000000).ToFeatureSet()
			var cache atomicbitops.Uint64
			if got := deriveFrequency(fs, &cache); got != qemuDefaultFrequency {
				t.Errorf("deriveFrequency got %d want %d", got, uint64(qemuDefaultFrequency))
			}
		})
	}
}

// countingFunction wraps a Function and counts queries.
type countingFunction struct {
	cpuid.Function
	queries int
}

// Query implements Function.Query.
func (c *countingFunction) Query(in cpuid.In) cpuid.Out {
	c.queries++
	return c.Function.Query(in)
}

func TestDeriveFrequencyIdempotent(t *testing.T) {
	cf := &countingFunction{Function: tscStatic(2, 200, 24000000)}
	fs := cpuid.FeatureSet{Function: cf}
	var cache atomicbitops.Uint64

	first := deriveFrequency(fs, &cache)
	queriesAfterFirst := cf.queries
	if queriesAfterFirst == 0 {
		t.Fatalf("first derivation performed no identification queries")
	}

	// The second call must hit the cache: same value, no new queries.
	second := deriveFrequency(fs, &cache)
	if second != first {
		t.Errorf("second derivation got %d want %d", second, first)
	}
	if cf.queries != queriesAfterFirst {
		t.Errorf("cache hit performed %d new identification queries", cf.queries-queriesAfterFirst)
	}
}

func TestDeriveFrequencyWriteOnce(t *testing.T) {
	fs := tscStatic(2, 200, 24000000).ToFeatureSet()
	var cache atomicbitops.Uint64

	// Racing derivations are redundant, not incorrect: every goroutine
	// computes and observes the same value.
	const want = 2400000000
	results := make([]uint64, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = deriveFrequency(fs, &cache)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != want {
			t.Errorf("goroutine %d got %d want %d", i, got, want)
		}
	}
	if got := cache.Load(); got != want {
		t.Errorf("cache value got %d want %d", got, want)
	}
}
