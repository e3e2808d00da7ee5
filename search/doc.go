// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package search provides hybrid lexical and vector ranking over notes.
//
// The Searcher blends two signals per note: a keyword rank computed
// from stop-word-filtered term frequency, normalized by the best rank
// in the candidate set, and embedding cosine similarity against the
// query vector, normalized to [0,1]. Notes without a stored vector, or
// queries whose embedding call fails, fall back to the lexical rank
// alone with no penalty.
//
// Results can be restricted to a trailing window of days and to notes
// mentioning a named entity (matched against canonical names and
// aliases).
package search
