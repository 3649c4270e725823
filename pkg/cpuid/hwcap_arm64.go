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

package cpuid

// See arch/arm64/include/uapi/asm/hwcap.h
const (
	// HWCAP flags for AT_HWCAP.
	HWCAP_FP      = 1 << 0
	HWCAP_ASIMD   = 1 << 1
	HWCAP_EVTSTRM = 1 << 2
	HWCAP_AES     = 1 << 3
	HWCAP_PMULL   = 1 << 4
	HWCAP_SHA1    = 1 << 5
	HWCAP_SHA2    = 1 << 6
	HWCAP_CRC32   = 1 << 7
	HWCAP_ATOMICS = 1 << 8
	HWCAP_FPHP    = 1 << 9
	HWCAP_ASIMDHP = 1 << 10
	HWCAP_CPUID   = 1 << 11
)
