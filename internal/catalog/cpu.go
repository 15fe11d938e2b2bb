/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package catalog

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Features records the host instructions the inliner may rely on.
type Features struct {
	Round bool // single-instruction floor/ceil/trunc/round
	Lzcnt bool // count leading zeros
}

// MachineOp is the static flag recorded on inlined gates that the back end
// can emit as a single machine instruction.
const MachineOp = uint64(1) << 32

var _Host = detect()

func detect() Features {
	return detectFor(runtime.GOARCH, cpuid.CPU.Supports)
}

func detectFor(arch string, has func(...cpuid.FeatureID) bool) Features {
	switch arch {
	case "amd64", "386":
		return Features{Round: has(cpuid.SSE4), Lzcnt: has(cpuid.LZCNT)}
	case "arm64":
		/* CLZ is part of the base A64 set, cpuid has no flag for it */
		return Features{Round: has(cpuid.FP), Lzcnt: true}
	default:
		return Features{}
	}
}

// HostFeatures returns the features detected at start-up.
func HostFeatures() Features {
	return _Host
}

// LowersToMachineOp reports whether id can be emitted as a single machine
// instruction on a host with the given features.
func LowersToMachineOp(id BuiltinID, f Features) bool {
	switch id {
	case MathFloor, MathCeil, MathTrunc, MathRound:
		return f.Round
	case MathClz32:
		return f.Lzcnt
	case MathSqrt, MathAbs, MathMin, MathMax, MathImul, MathFRound:
		return true
	default:
		builtin(id)
		return false
	}
}
