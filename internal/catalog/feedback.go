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
	"github.com/cloudwego/gatec/internal/circuit"
)

// Feedback tells which builtin a call site was observed to invoke.
type Feedback interface {
	BuiltinOf(g *circuit.Gate) (BuiltinID, bool)
}

// StaticFeedback is a fixed mapping from call sites to builtins.
type StaticFeedback map[circuit.GateId]BuiltinID

func (self StaticFeedback) BuiltinOf(g *circuit.Gate) (BuiltinID, bool) {
	id, ok := self[g.Id]
	return id, ok && id.Valid()
}

// NoFeedback never reports a builtin.
type NoFeedback struct{}

func (NoFeedback) BuiltinOf(*circuit.Gate) (BuiltinID, bool) {
	return BuiltinNone, false
}
