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
package session

import (
	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps expired session files off disk. Lookups
// already purge lazily; the janitor bounds the disk footprint of sessions
// that never come back.
type Janitor struct {
	cron *cron.Cron
}

// StartJanitor schedules SweepDisk on the given cron spec (for example
// "@every 30m"). Returns nil if the spec does not parse.
func StartJanitor(store *Store, spec string) *Janitor {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { store.SweepDisk() }); err != nil {
		return nil
	}
	c.Start()
	return &Janitor{cron: c}
}

// Stop halts the sweep schedule.
func (j *Janitor) Stop() {
	if j != nil && j.cron != nil {
		j.cron.Stop()
	}
}
