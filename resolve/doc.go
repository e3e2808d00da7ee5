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


// Package resolve maps extracted entity mentions onto the deduplicated
// entity registry.
//
// Resolution runs three stages in order:
//
//  1. Exact: the normalized surface form is looked up against canonical
//     names and aliases of the same type.
//  2. Fuzzy: trigram similarity against all same-type entities; a match
//     at or above the fuzzy threshold adopts the surface form as a new
//     alias, so the next occurrence resolves exactly.
//  3. Create: a new entity is registered with the verbatim text as its
//     canonical name. A creation race against a concurrent writer is
//     resolved by re-reading the committed winner.
//
// The same surface form therefore always converges on a single entity,
// regardless of how many notes mention it or in what order they arrive.
//
// Entity writes commit independently of any surrounding note ingestion:
// entities are shared records, and an aborted note must not roll back
// an entity another note already resolved against.
package resolve
