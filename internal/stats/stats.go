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
package stats

import (
	"sync/atomic"
)

// Process-wide compiler counters. Circuits may be compiled concurrently, so
// every update is atomic.
var (
	Compiled        int64
	Rejected        int64
	CallsLowered    int64
	BuiltinsInlined int64
	LoopsPeeled     int64
	GatesRemoved    int64
)

func Add(p *int64, n int) {
	atomic.AddInt64(p, int64(n))
}

func Load(p *int64) int {
	return int(atomic.LoadInt64(p))
}
