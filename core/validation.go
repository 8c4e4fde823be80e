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

import (
	"fmt"
)

// ValidateEpisode validates an Episode according to domain rules.
//
// Validation rules:
//   - UUID, Name and Namespace must not be empty
//   - Content must not be empty
//   - Format must be one of the known formats
//
// NOT validated (populated by processors):
//   - Vector
//   - ID (derived from UUID when stored)
func ValidateEpisode(episode *Episode) error {
	if episode == nil {
		return fmt.Errorf("%w: episode is nil", ErrInvalidEpisode)
	}
	if episode.UUID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, ErrEmptyUUID)
	}
	if episode.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, ErrEmptyName)
	}
	if err := ValidateNamespace(episode.Namespace); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, err)
	}
	if episode.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, ErrEmptyContent)
	}
	if err := ValidateFormat(episode.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, err)
	}
	return nil
}

// ValidateEntity validates an Entity according to domain rules.
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}
	if entity.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyName)
	}
	if err := ValidateNamespace(entity.Namespace); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	return nil
}

// ValidateFact validates a Fact according to domain rules.
func ValidateFact(fact *Fact) error {
	if fact == nil {
		return fmt.Errorf("%w: fact is nil", ErrInvalidFact)
	}
	if fact.Relation == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFact, ErrEmptyName)
	}
	if fact.SourceId == 0 || fact.TargetId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidFact, ErrMissingEndpoint)
	}
	if err := ValidateNamespace(fact.Namespace); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFact, err)
	}
	return nil
}

// ValidateNamespace checks that a namespace name is usable as a key component.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	for _, r := range namespace {
		if r == 0 {
			return fmt.Errorf("namespace %q contains a NUL byte", namespace)
		}
	}
	return nil
}

// ValidateFormat validates that an EpisodeFormat has a known value.
func ValidateFormat(format EpisodeFormat) error {
	if format != FormatText && format != FormatMessage && format != FormatJSON {
		return fmt.Errorf("%w: value %d", ErrInvalidFormat, format)
	}
	return nil
}
