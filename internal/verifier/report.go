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
package verifier

import (
	"fmt"
	"strings"

	"github.com/cloudwego/gatec/internal/circuit"
)

// Stage identifies one independent verification stage.
type Stage uint8

const (
	DataIntegrity Stage = iota + 1
	StateWellFormed
	CFGSoundness
	Reducibility
	FixedDominance
	FlowCycles
)

var _StageNames = [...]string{
	DataIntegrity:   "data-integrity",
	StateWellFormed: "state-well-formed",
	CFGSoundness:    "cfg-soundness",
	Reducibility:    "reducibility",
	FixedDominance:  "fixed-dominance",
	FlowCycles:      "flow-cycles",
}

func (self Stage) String() string {
	if int(self) < len(_StageNames) && _StageNames[self] != "" {
		return _StageNames[self]
	} else {
		return fmt.Sprintf("stage_%d", uint8(self))
	}
}

// StageResult is the outcome of one stage. Gates lists the offending gates
// of a failed stage.
type StageResult struct {
	Stage   Stage
	Ok      bool
	Gates   []circuit.GateId
	Message string
}

func (self StageResult) String() string {
	if self.Ok {
		return self.Stage.String() + ": ok"
	} else {
		return fmt.Sprintf("%s: %s %v", self.Stage, self.Message, self.Gates)
	}
}

// Report collects the results of every stage run over one circuit.
type Report struct {
	Circuit string
	Results []StageResult
}

func (self Report) Ok() bool {
	for _, r := range self.Results {
		if !r.Ok {
			return false
		}
	}
	return true
}

// Failed returns the results of the failed stages.
func (self Report) Failed() []StageResult {
	var ret []StageResult
	for _, r := range self.Results {
		if !r.Ok {
			ret = append(ret, r)
		}
	}
	return ret
}

// Result returns the result of stage s, if it was run.
func (self Report) Result(s Stage) (StageResult, bool) {
	for _, r := range self.Results {
		if r.Stage == s {
			return r, true
		}
	}
	return StageResult{}, false
}

// Err returns nil if every stage passed, or an *Error otherwise.
func (self Report) Err() error {
	if f := self.Failed(); len(f) == 0 {
		return nil
	} else {
		return &Error{Circuit: self.Circuit, Failed: f}
	}
}

// Error is returned for a circuit that failed verification.
type Error struct {
	Circuit string
	Failed  []StageResult
}

func (self *Error) Error() string {
	msg := make([]string, len(self.Failed))
	for i, r := range self.Failed {
		msg[i] = r.String()
	}
	return fmt.Sprintf("verifier: %s: %s", self.Circuit, strings.Join(msg, "; "))
}

func pass(s Stage) StageResult {
	return StageResult{Stage: s, Ok: true}
}

func fail(s Stage, gates []*circuit.Gate, msg string, args ...interface{}) StageResult {
	ids := make([]circuit.GateId, len(gates))
	for i, g := range gates {
		ids[i] = g.Id
	}
	return StageResult{
		Stage:   s,
		Gates:   ids,
		Message: fmt.Sprintf(msg, args...),
	}
}
