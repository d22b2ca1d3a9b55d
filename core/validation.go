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
	"strings"
)

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - Text must not be empty or whitespace-only
//   - Tag must not be empty
//   - At least one response must be present
//   - Kind must be a known RecordKind
//
// Records are validated at ingest time so query-time code can rely on
// every field being populated.
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if strings.TrimSpace(record.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyRecordText)
	}

	if record.Tag == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyRecordTag)
	}

	if len(record.Responses) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrNoResponses)
	}

	if err := ValidateRecordKind(record.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	return nil
}

// ValidateRecordKind validates that a RecordKind has a valid value.
func ValidateRecordKind(kind RecordKind) error {
	if kind != RecordKindPattern {
		return fmt.Errorf("%w: value %d", ErrInvalidRecordKind, kind)
	}
	return nil
}

// ValidateBundleConfig validates a persisted bundle configuration.
//
// Validation rules:
//   - ModelName must not be empty
//   - Dimension must be positive
//   - TotalVectors must not be negative
func ValidateBundleConfig(config *BundleConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if config.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidConfig)
	}

	if config.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d must be positive", ErrInvalidConfig, config.Dimension)
	}

	if config.TotalVectors < 0 {
		return fmt.Errorf("%w: total vectors %d is negative", ErrInvalidConfig, config.TotalVectors)
	}

	return nil
}

// ValidateSpeaker validates that a Speaker has a valid value.
func ValidateSpeaker(speaker Speaker) error {
	if speaker != SpeakerUser && speaker != SpeakerAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidSpeaker, speaker)
	}
	return nil
}

// ValidateTurn validates a conversation turn.
func ValidateTurn(turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("turn is nil")
	}

	if turn.Content == "" {
		return ErrEmptyContent
	}

	return ValidateSpeaker(turn.Speaker)
}
