/*
 * Copyright 2025 Poiesic Systems
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

package retrieve

import "errors"

var (
	// ErrNoIndex is returned when retrieval is requested before a ready,
	// non-empty index exists. The message doubles as the user-visible
	// "no context" signal, so callers render it rather than crash.
	ErrNoIndex = errors.New("No index found or index is empty")

	// ErrIndexRepositoryRequired is returned when NewRetriever is called
	// without an index repository.
	ErrIndexRepositoryRequired = errors.New("index repository is required")

	// ErrEmbedderRequired is returned when NewRetriever is called without
	// an embedder. Query embedding is the one hard dependency of
	// retrieval; expansion and everything downstream can degrade, this
	// cannot.
	ErrEmbedderRequired = errors.New("embedder is required")
)
