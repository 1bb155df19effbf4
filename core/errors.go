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
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidSegment indicates a Segment failed validation.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrInvalidRule indicates a Rule failed validation.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrInvalidViolation indicates a Violation failed validation.
	ErrInvalidViolation = errors.New("invalid violation")

	// ErrInvalidKind indicates an invalid DocumentKind value.
	ErrInvalidKind = errors.New("invalid document kind")

	// ErrInvalidStatus indicates an invalid DocumentStatus value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrInvalidTransition indicates a disallowed status transition.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingOrg indicates the OrgId field is zero.
	ErrMissingOrg = errors.New("organization id is required")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)
