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

package cycles

import (
	"errors"
	"math/bits"
	"time"

	"golang.org/x/sys/unix"

	"cycleclock.dev/cycleclock/pkg/log"
)

const (
	// maxSampleLoops is the maximum number of times to try to get a clock
	// sample under the expected overhead.
	maxSampleLoops = 5

	// maxSamples is the maximum number of samples to collect.
	maxSamples = 10

	// nanosPerSecond converts reference clock deltas to Hz.
	nanosPerSecond = 1000000000
)

// Measurement errors.
var (
	// errOverheadTooHigh is returned from sampler.Sample if the reference
	// clock overhead is too high.
	errOverheadTooHigh = errors.New("reference clock overhead exceeds maximum")

	// errSampleRange is returned when two samples are too close together
	// to compute a frequency from.
	errSampleRange = errors.New("sample interval too small")
)

// sample contains a sample from the reference clock, with cycle counter
// values from before and after the reference clock value was captured.
type sample struct {
	before uint64
	after  uint64
	ref    int64 // Reference clock nanoseconds.
}

// Overhead returns the sample overhead in counter cycles.
func (s *sample) Overhead() uint64 {
	return s.after - s.before
}

// referenceClock collects individual samples of the cycle counter around
// reads of a reference clock.
type referenceClock interface {
	// Sample returns a single sample from the reference clock.
	Sample() (sample, error)
}

// sampler collects samples from a reference system clock, minimizing the
// overhead in each sample.
type sampler struct {
	// clock provides raw samples.
	clock referenceClock

	// overhead is the estimated sample overhead in counter cycles.
	overhead uint64

	// samples is a ring buffer of the latest samples collected.
	samples []sample
}

// newSampler creates a sampler backed by the host counter and
// CLOCK_MONOTONIC.
func newSampler() *sampler {
	return &sampler{
		clock:    monotonicReferenceClock{},
		overhead: defaultOverheadCycles,
	}
}

// Reset discards previously collected clock samples.
func (s *sampler) Reset() {
	s.overhead = defaultOverheadCycles
	s.samples = []sample{}
}

// lowOverheadSample returns a reference clock sample with minimized overhead.
func (s *sampler) lowOverheadSample() (sample, error) {
	for {
		for i := 0; i < maxSampleLoops; i++ {
			samp, err := s.clock.Sample()
			if err != nil {
				return sample{}, err
			}

			if samp.before > samp.after {
				log.Warningf("Cycle counter went backwards: %v > %v", samp.before, samp.after)
				continue
			}

			if samp.Overhead() <= s.overhead {
				return samp, nil
			}
		}

		// Couldn't get a sample with the current overhead. Increase it.
		newOverhead := 2 * s.overhead
		if newOverhead > maxOverheadCycles {
			// We'll give it one more shot with the max overhead.

			if s.overhead == maxOverheadCycles {
				return sample{}, errOverheadTooHigh
			}

			newOverhead = maxOverheadCycles
		}

		s.overhead = newOverhead
		log.Debugf("Adjusting reference clock overhead up to %v", s.overhead)
	}
}

// Sample collects a reference clock sample.
func (s *sampler) Sample() error {
	sample, err := s.lowOverheadSample()
	if err != nil {
		return err
	}

	s.samples = append(s.samples, sample)
	if len(s.samples) > maxSamples {
		s.samples = s.samples[1:]
	}

	// If the 4 most recent samples all have an overhead less than half the
	// expected overhead, adjust downwards.
	if len(s.samples) < 4 {
		return nil
	}

	for _, sample := range s.samples[len(s.samples)-4:] {
		if sample.Overhead() > s.overhead/2 {
			return nil
		}
	}

	s.overhead -= s.overhead / 8
	log.Debugf("Adjusting reference clock overhead down to %v", s.overhead)

	return nil
}

// Range returns the widest range of clock samples available.
func (s *sampler) Range() (sample, sample, bool) {
	if len(s.samples) < 2 {
		return sample{}, sample{}, false
	}

	return s.samples[0], s.samples[len(s.samples)-1], true
}

// measure samples the counter against the reference clock across a sleep of
// approximately d and computes the observed counter frequency.
func (s *sampler) measure(d time.Duration) (uint64, error) {
	if err := s.Sample(); err != nil {
		return 0, err
	}

	time.Sleep(d)

	if err := s.Sample(); err != nil {
		return 0, err
	}

	first, last, ok := s.Range()
	if !ok {
		return 0, errSampleRange
	}
	return frequencyFromSamples(first, last)
}

// frequencyFromSamples computes the counter increments per reference clock
// second between two samples.
func frequencyFromSamples(first, last sample) (uint64, error) {
	midFirst := first.before + first.Overhead()/2
	midLast := last.before + last.Overhead()/2
	ns := last.ref - first.ref
	if ns <= 0 || midLast <= midFirst {
		return 0, errSampleRange
	}

	f, ok := muldiv64(midLast-midFirst, nanosPerSecond, uint64(ns))
	if !ok {
		return 0, errSampleRange
	}
	return f, nil
}

// muldiv64 multiplies two 64-bit numbers, then divides the result by another
// 64-bit number.
//
// It requires that the result fit in 64 bits, but doesn't require that
// intermediate values do.
func muldiv64(value, multiplier, divisor uint64) (uint64, bool) {
	hi, lo := bits.Mul64(value, multiplier)
	if hi >= divisor {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, divisor)
	return q, true
}

// monotonicReferenceClock is the standard referenceClock, sampling the host
// counter around CLOCK_MONOTONIC reads.
type monotonicReferenceClock struct{}

// Sample implements referenceClock.Sample.
func (monotonicReferenceClock) Sample() (sample, error) {
	var (
		s  sample
		ts unix.Timespec
	)

	s.before = Host.Count()
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return sample{}, err
	}
	s.after = Host.Count()
	s.ref = ts.Nano()

	return s, nil
}

// MeasureFrequency estimates the host counter frequency in Hz by sampling
// the counter against CLOCK_MONOTONIC over approximately d.
//
// The result is observational and never feeds the frequency memoization;
// Frequency remains authoritative. It is useful for checking a derived or
// fallback frequency against the clock the kernel actually advances.
func MeasureFrequency(d time.Duration) (uint64, error) {
	return newSampler().measure(d)
}

// VerifyFrequency measures the counter against the reference clock over
// approximately d and logs how the observation compares to the reported
// frequency.
func VerifyFrequency(d time.Duration) error {
	measured, err := MeasureFrequency(d)
	if err != nil {
		return err
	}
	log.Infof("Cycle counter frequency: reported %d Hz, measured %d Hz over %v", Frequency(), measured, d)
	return nil
}
