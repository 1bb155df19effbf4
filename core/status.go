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

// DocumentStatus tracks a document through the processing pipeline.
//
// The lifecycle is linear with a single failure sink:
//
//	uploaded -> processing -> embedded -> ruled|audited -> completed
//
// Any non-terminal status may move to failed. A failed or completed
// document may be reset to uploaded for reprocessing.
type DocumentStatus int

const (
	// StatusUploaded means the document blob is stored but no processing has started.
	StatusUploaded DocumentStatus = iota + 1
	// StatusProcessing means a pipeline run holds the document's lease.
	StatusProcessing
	// StatusEmbedded means segments are indexed in the organization's vector index.
	StatusEmbedded
	// StatusRuled means rule extraction finished for a policy document.
	StatusRuled
	// StatusAudited means violation detection finished for an audit document.
	StatusAudited
	// StatusCompleted is the terminal success state.
	StatusCompleted
	// StatusFailed is the terminal failure state. FailureReason records the stage.
	StatusFailed
)

// String returns the status as a lowercase label.
func (s DocumentStatus) String() string {
	switch s {
	case StatusUploaded:
		return "uploaded"
	case StatusProcessing:
		return "processing"
	case StatusEmbedded:
		return "embedded"
	case StatusRuled:
		return "ruled"
	case StatusAudited:
		return "audited"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status ends a pipeline run.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a document may move from one status to another.
//
// Transitions follow the pipeline order. Failed is reachable from every
// non-terminal status. Completed is reachable directly from processing for
// documents that yield no text. Terminal statuses may only be reset to
// uploaded (manual reprocessing).
func CanTransition(from, to DocumentStatus) bool {
	if from.Terminal() {
		return to == StatusUploaded
	}
	if to == StatusFailed {
		return true
	}
	switch from {
	case StatusUploaded:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusEmbedded || to == StatusCompleted
	case StatusEmbedded:
		return to == StatusRuled || to == StatusAudited
	case StatusRuled, StatusAudited:
		return to == StatusCompleted
	default:
		return false
	}
}
