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

// Package search routes a question to structured or semantic retrieval.
//
// The Router implements a fixed policy over one snapshot generation:
//   - an empty snapshot yields core.ModeNone without touching either matcher
//   - a query naming a known attribute value yields core.ModeStructured, even
//     when the recognized filters exclude every record
//   - anything else falls through to nearest-neighbor search over the vector
//     index and yields core.ModeSemantic
//
// When the query itself cannot be embedded the router reports
// core.ModeUnavailable instead of an error, so callers can always render a
// response.
//
// A RouteMonitor observes each stage of a single Route call.
package search
