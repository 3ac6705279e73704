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


// Package search provides participant-scoped semantic search over email chunks.
//
// The Searcher type resolves a participant identity to the set of emails it
// sent or directly received, ranks those emails' chunks by cosine similarity
// to a query vector, and returns the chunks scoring strictly above a
// threshold. Queries can start from a raw vector (Search) or from text that
// is embedded first (SearchText, FindSimilar).
//
// A SearchMonitor can observe each stage of a search for diagnostics.
package search
