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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudwego/gatec/internal/stats"
)

func TestGetStats(t *testing.T) {
	old := GetStats()
	stats.Add(&stats.Compiled, 2)
	stats.Add(&stats.GatesRemoved, 7)

	now := GetStats()
	assert.Equal(t, old.Circuits.Compiled+2, now.Circuits.Compiled)
	assert.Equal(t, old.Passes.GatesRemoved+7, now.Passes.GatesRemoved)
	assert.Equal(t, old.Passes.LoopsPeeled, now.Passes.LoopsPeeled)
}
