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

package debug

import (
	"github.com/cloudwego/gatec/internal/stats"
)

// A Stats records statistics about the compiler.
type Stats struct {
	Circuits CircuitStats
	Passes   PassStats
}

// A CircuitStats records how many circuits went through the pipeline.
type CircuitStats struct {
	Compiled int
	Rejected int
}

// A PassStats records the work done by the individual passes.
type PassStats struct {
	CallsLowered    int
	BuiltinsInlined int
	LoopsPeeled     int
	GatesRemoved    int
}

// GetStats returns statistics of the compiler.
func GetStats() Stats {
	return Stats{
		Circuits: CircuitStats{
			Compiled: stats.Load(&stats.Compiled),
			Rejected: stats.Load(&stats.Rejected),
		},
		Passes: PassStats{
			CallsLowered:    stats.Load(&stats.CallsLowered),
			BuiltinsInlined: stats.Load(&stats.BuiltinsInlined),
			LoopsPeeled:     stats.Load(&stats.LoopsPeeled),
			GatesRemoved:    stats.Load(&stats.GatesRemoved),
		},
	}
}
