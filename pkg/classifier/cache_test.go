// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/heddle/pkg/types"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache(10, time.Hour)
	c.Set("some prompt", types.TierComplex)

	tier, ok := c.Get("some prompt")
	require.True(t, ok)
	assert.Equal(t, types.TierComplex, tier)

	_, ok = c.Get("other prompt")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10, time.Hour)
	now := time.Now()
	c.SetClock(func() time.Time { return now })
	c.Set("prompt", types.TierModerate)

	_, ok := c.Get("prompt")
	require.True(t, ok)

	now = now.Add(61 * time.Minute)
	_, ok = c.Get("prompt")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry is purged on read")
}

func TestCacheEvictsOldest(t *testing.T) {
	c := NewCache(2, time.Hour)
	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("first", types.TierSimple)
	now = now.Add(time.Second)
	c.Set("second", types.TierModerate)
	now = now.Add(time.Second)
	c.Set("third", types.TierComplex)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("first")
	assert.False(t, ok, "oldest entry is evicted")
	_, ok = c.Get("second")
	assert.True(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
}

func TestCacheKeyUsesPrefixOnly(t *testing.T) {
	long := make([]byte, cacheKeyPrefixLen)
	for i := range long {
		long[i] = 'a'
	}
	c := NewCache(10, time.Hour)
	c.Set(string(long)+" one", types.TierComplex)

	tier, ok := c.Get(string(long) + " two")
	require.True(t, ok)
	assert.Equal(t, types.TierComplex, tier)
}
