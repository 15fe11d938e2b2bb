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

// Options is the per-compilation snapshot of the pass switches.
type Options struct {
	CallTimer       bool
	PGOProfiler     bool
	ReadBarrier     bool
	NativeInline    bool
	UncheckedInline bool
	TraceInline     bool
	LoopPeeling     bool
	CheckCallable   bool
	Baseline        bool
	Verify          bool
	Dump            bool
	MaxPeelSize     int
}

// CanPeel reports whether a loop body of the given size may be peeled. The
// limit is inclusive, and a MaxPeelSize of 0 means no limit.
func (self *Options) CanPeel(size int) bool {
	return self.LoopPeeling && (self.MaxPeelSize == 0 || size <= self.MaxPeelSize)
}

func GetDefaultOptions() Options {
	return Options{
		CallTimer:       EnableCallTimer,
		PGOProfiler:     EnablePGOProfiler,
		ReadBarrier:     EnableReadBarrier,
		NativeInline:    EnableNativeInline,
		UncheckedInline: UncheckedInline,
		TraceInline:     TraceInline,
		LoopPeeling:     EnableLoopPeeling,
		CheckCallable:   CheckCallable,
		Baseline:        EnableBaseline,
		Verify:          EnableVerify,
		MaxPeelSize:     MaxPeelSize,
	}
}
