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
package opts

import (
	"os"
	"strconv"
)

const (
	_DefaultMaxPeelSize = 256 // loops with larger bodies are not peeled
)

var (
	EnableCallTimer    = parseBoolOrDefault("GATEC_ENABLE_CALL_TIMER", false)
	EnablePGOProfiler  = parseBoolOrDefault("GATEC_ENABLE_PGO_PROFILER", false)
	EnableReadBarrier  = parseBoolOrDefault("GATEC_READ_BARRIER", false)
	EnableNativeInline = parseBoolOrDefault("GATEC_ENABLE_NATIVE_INLINE", true)
	UncheckedInline    = parseBoolOrDefault("GATEC_UNCHECKED_INLINE", false)
	TraceInline        = parseBoolOrDefault("GATEC_TRACE_INLINE", false)
	EnableLoopPeeling  = parseBoolOrDefault("GATEC_ENABLE_LOOP_PEELING", true)
	CheckCallable      = parseBoolOrDefault("GATEC_CHECK_CALLABLE", true)
	EnableBaseline     = parseBoolOrDefault("GATEC_ENABLE_BASELINE", false)
	EnableVerify       = parseBoolOrDefault("GATEC_VERIFY", true)
	MaxPeelSize        = parseOrDefault("GATEC_MAX_PEEL_SIZE", _DefaultMaxPeelSize, 0)
)

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("gatec: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("gatec: value too small for " + key)
	} else {
		return ret
	}
}

func parseBoolOrDefault(key string, def bool) bool {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseBool(env); err != nil {
		panic("gatec: invalid value for " + key)
	} else {
		return val
	}
}
