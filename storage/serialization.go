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


package storage

import (
	"github.com/poiesic/verdict/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	var id core.ID
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, core.DocumentMUS.Size(*doc))
	core.DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalSegment serializes a Segment to bytes.
func MarshalSegment(segment *core.Segment) []byte {
	buf := make([]byte, core.SegmentMUS.Size(*segment))
	core.SegmentMUS.Marshal(*segment, buf)
	return buf
}

// UnmarshalSegment deserializes a Segment from bytes.
func UnmarshalSegment(data []byte) (*core.Segment, error) {
	segment, _, err := core.SegmentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &segment, nil
}

// MarshalEmbeddingRecord serializes an EmbeddingRecord to bytes.
func MarshalEmbeddingRecord(record *core.EmbeddingRecord) []byte {
	buf := make([]byte, core.EmbeddingRecordMUS.Size(*record))
	core.EmbeddingRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalEmbeddingRecord deserializes an EmbeddingRecord from bytes.
func UnmarshalEmbeddingRecord(data []byte) (*core.EmbeddingRecord, error) {
	record, _, err := core.EmbeddingRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalRule serializes a Rule to bytes.
func MarshalRule(rule *core.Rule) []byte {
	buf := make([]byte, core.RuleMUS.Size(*rule))
	core.RuleMUS.Marshal(*rule, buf)
	return buf
}

// UnmarshalRule deserializes a Rule from bytes.
func UnmarshalRule(data []byte) (*core.Rule, error) {
	rule, _, err := core.RuleMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// MarshalViolation serializes a Violation to bytes.
func MarshalViolation(violation *core.Violation) []byte {
	buf := make([]byte, core.ViolationMUS.Size(*violation))
	core.ViolationMUS.Marshal(*violation, buf)
	return buf
}

// UnmarshalViolation deserializes a Violation from bytes.
func UnmarshalViolation(data []byte) (*core.Violation, error) {
	violation, _, err := core.ViolationMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &violation, nil
}
