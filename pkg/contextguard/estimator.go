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
package contextguard

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator converts text into an estimated token count for budgeting.
type Estimator func(text string) int

// EstimatorFor resolves a configured estimator name. "tiktoken" selects
// TiktokenEstimator; anything else resolves to HeuristicEstimator.
func EstimatorFor(name string) Estimator {
	if name == "tiktoken" {
		return TiktokenEstimator
	}
	return HeuristicEstimator
}

// HeuristicEstimator is the default budgeting estimate: one token per four
// characters, minimum one for non-empty text. Deterministic, which keeps
// the guard's threshold arithmetic reproducible.
func HeuristicEstimator(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

var (
	tiktokenEncoder *tiktoken.Tiktoken
	tiktokenMu      sync.Mutex
	tiktokenOnce    sync.Once
)

// TiktokenEstimator counts tokens with the cl100k_base encoding, a good
// approximation for Claude models. Falls back to HeuristicEstimator when
// the encoding cannot be loaded.
func TiktokenEstimator(text string) int {
	if text == "" {
		return 0
	}
	tiktokenOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tiktokenEncoder = enc
		}
	})
	if tiktokenEncoder == nil {
		return HeuristicEstimator(text)
	}
	tiktokenMu.Lock()
	defer tiktokenMu.Unlock()
	return len(tiktokenEncoder.Encode(text, nil, nil))
}
