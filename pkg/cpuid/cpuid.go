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

// Package cpuid provides processor identification queries.
//
// On x86, queries execute the CPUID instruction, organized into numbered
// leaves. The native query function can be replaced by a Static definition,
// which allows tests to simulate arbitrary hardware.
//
// On arm64, identification data comes from the ELF auxiliary vector (HWCAP)
// exposed by the kernel, since userspace cannot read the ID registers
// directly on all systems.
package cpuid

// Function executes a processor identification query.
//
// This is typically the native function or a Static definition.
type Function interface {
	Query(In) Out
}

// In is input to the Query function.
type In struct {
	Eax uint32
	Ecx uint32
}

// Out is output from the Query function.
//
// The four registers are read transiently per query and never persisted.
type Out struct {
	Eax uint32
	Ebx uint32
	Ecx uint32
	Edx uint32
}
