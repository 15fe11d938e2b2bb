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
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_CanPeel(t *testing.T) {
	o := Options{LoopPeeling: true, MaxPeelSize: 10}
	assert.True(t, o.CanPeel(9))
	assert.True(t, o.CanPeel(10))
	assert.False(t, o.CanPeel(11))

	/* no limit */
	o.MaxPeelSize = 0
	assert.True(t, o.CanPeel(gofakeit.Number(0, 1<<20)))

	/* disabled */
	o.LoopPeeling = false
	assert.False(t, o.CanPeel(0))
}

func TestParseOrDefault(t *testing.T) {
	const key = "GATEC_TEST_PARSE_OR_DEFAULT"
	t.Setenv(key, "")
	assert.Equal(t, 256, parseOrDefault(key, 256, 0))

	/* zero is the smallest accepted value */
	t.Setenv(key, "0")
	require.NotPanics(t, func() { parseOrDefault(key, 256, 0) })
	assert.Equal(t, 0, parseOrDefault(key, 256, 0))
	assert.Panics(t, func() { parseOrDefault(key, 256, 1) })

	t.Setenv(key, "0x10")
	assert.Equal(t, 16, parseOrDefault(key, 256, 0))
	t.Setenv(key, "-1")
	assert.Panics(t, func() { parseOrDefault(key, 256, 0) })
}

func TestParseBoolOrDefault(t *testing.T) {
	const key = "GATEC_TEST_PARSE_BOOL_OR_DEFAULT"
	t.Setenv(key, "")
	assert.True(t, parseBoolOrDefault(key, true))
	t.Setenv(key, "false")
	assert.False(t, parseBoolOrDefault(key, true))
	t.Setenv(key, "maybe")
	assert.Panics(t, func() { parseBoolOrDefault(key, true) })
}
