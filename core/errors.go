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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidEpisode indicates an Episode failed validation.
	ErrInvalidEpisode = errors.New("invalid episode")

	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidFact indicates a Fact failed validation.
	ErrInvalidFact = errors.New("invalid fact")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyName indicates a Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrEmptyUUID indicates a UUID field is empty.
	ErrEmptyUUID = errors.New("uuid cannot be empty")

	// ErrEmptyNamespace indicates a Namespace field is empty.
	ErrEmptyNamespace = errors.New("namespace cannot be empty")

	// ErrInvalidFormat indicates an invalid EpisodeFormat value.
	ErrInvalidFormat = errors.New("invalid episode format")

	// ErrMissingEndpoint indicates a fact without a source or target entity.
	ErrMissingEndpoint = errors.New("fact must reference a source and a target entity")
)
