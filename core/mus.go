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
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for all persisted record types. Written by hand: the
// record set is small and stable, so a generator step is not worth the
// build complexity. Field order is fixed; adding fields requires new
// serializer versions.

var float32SliceMUS = ord.NewSliceSer[float32](raw.Float32)

// IDMUS serializes IDs as varint-encoded uint64s.
var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	num, n, err := varint.Uint64.Unmarshal(bs)
	return ID(num), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

// DocumentMUS serializes Document records.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.OrgId, bs[n:])
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += ord.String.Marshal(v.BlobPath, bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += ord.String.Marshal(v.FailureReason, bs[n:])
	n += varint.Int64.Marshal(v.FileSize, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.UploadedAt, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
	return n
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.OrgId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var kind int
	if kind, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Kind = DocumentKind(kind)
	n += n1
	if v.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.BlobPath, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var status int
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Status = DocumentStatus(status)
	n += n1
	if v.FailureReason, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.FileSize, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UploadedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.OrgId)
	size += varint.Int.Size(int(v.Kind))
	size += ord.String.Size(v.Filename)
	size += ord.String.Size(v.BlobPath)
	size += varint.Int.Size(int(v.Status))
	size += ord.String.Size(v.FailureReason)
	size += varint.Int64.Size(v.FileSize)
	size += raw.TimeUnixMicro.Size(v.UploadedAt)
	size += raw.TimeUnixMicro.Size(v.UpdatedAt)
	return size
}

// SegmentMUS serializes Segment records.
var SegmentMUS = segmentMUS{}

type segmentMUS struct{}

func (s segmentMUS) Marshal(v Segment, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int.Marshal(v.TokenCount, bs[n:])
	return n
}

func (s segmentMUS) Unmarshal(bs []byte) (v Segment, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (s segmentMUS) Size(v Segment) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += varint.Int.Size(v.Index)
	size += ord.String.Size(v.Content)
	size += varint.Int.Size(v.TokenCount)
	return size
}

// EmbeddingRecordMUS serializes EmbeddingRecord entries of the vector index.
var EmbeddingRecordMUS = embeddingRecordMUS{}

type embeddingRecordMUS struct{}

func (s embeddingRecordMUS) Marshal(v EmbeddingRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.SegmentId, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += IDMUS.Marshal(v.OrgId, bs[n:])
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += ord.String.Marshal(v.Preview, bs[n:])
	n += float32SliceMUS.Marshal(v.Vector, bs[n:])
	return n
}

func (s embeddingRecordMUS) Unmarshal(bs []byte) (v EmbeddingRecord, n int, err error) {
	var n1 int
	if v.SegmentId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.OrgId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var kind int
	if kind, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Kind = DocumentKind(kind)
	n += n1
	if v.Preview, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector, n1, err = float32SliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (s embeddingRecordMUS) Size(v EmbeddingRecord) (size int) {
	size = IDMUS.Size(v.SegmentId)
	size += IDMUS.Size(v.DocumentId)
	size += IDMUS.Size(v.OrgId)
	size += varint.Int.Size(int(v.Kind))
	size += ord.String.Size(v.Preview)
	size += float32SliceMUS.Size(v.Vector)
	return size
}

// RuleMUS serializes Rule records.
var RuleMUS = ruleMUS{}

type ruleMUS struct{}

func (s ruleMUS) Marshal(v Rule, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.OrgId, bs[n:])
	n += IDMUS.Marshal(v.PolicyId, bs[n:])
	n += IDMUS.Marshal(v.SourceSegmentId, bs[n:])
	n += ord.String.Marshal(v.RuleText, bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += varint.Int.Marshal(int(v.Severity), bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.CreatedAt, bs[n:])
	return n
}

func (s ruleMUS) Unmarshal(bs []byte) (v Rule, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.OrgId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.PolicyId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.SourceSegmentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.RuleText, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var severity int
	if severity, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Severity = Severity(severity)
	n += n1
	if v.CreatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (s ruleMUS) Size(v Rule) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.OrgId)
	size += IDMUS.Size(v.PolicyId)
	size += IDMUS.Size(v.SourceSegmentId)
	size += ord.String.Size(v.RuleText)
	size += ord.String.Size(v.Category)
	size += varint.Int.Size(int(v.Severity))
	size += raw.TimeUnixMicro.Size(v.CreatedAt)
	return size
}

// ViolationMUS serializes Violation records.
var ViolationMUS = violationMUS{}

type violationMUS struct{}

func (s violationMUS) Marshal(v Violation, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.OrgId, bs[n:])
	n += IDMUS.Marshal(v.AuditDocumentId, bs[n:])
	n += IDMUS.Marshal(v.RuleId, bs[n:])
	n += IDMUS.Marshal(v.SegmentId, bs[n:])
	n += varint.Int.Marshal(int(v.Severity), bs[n:])
	n += ord.String.Marshal(v.Explanation, bs[n:])
	n += ord.String.Marshal(v.Remediation, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.DetectedAt, bs[n:])
	return n
}

func (s violationMUS) Unmarshal(bs []byte) (v Violation, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.OrgId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.AuditDocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.RuleId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.SegmentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var severity int
	if severity, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Severity = Severity(severity)
	n += n1
	if v.Explanation, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Remediation, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.DetectedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (s violationMUS) Size(v Violation) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.OrgId)
	size += IDMUS.Size(v.AuditDocumentId)
	size += IDMUS.Size(v.RuleId)
	size += IDMUS.Size(v.SegmentId)
	size += varint.Int.Size(int(v.Severity))
	size += ord.String.Size(v.Explanation)
	size += ord.String.Size(v.Remediation)
	size += raw.TimeUnixMicro.Size(v.DetectedAt)
	return size
}

// NormalizeTime truncates to microsecond precision and UTC, matching what a
// serialization round trip produces. Repositories use it so returned records
// compare equal to what a later read returns.
func NormalizeTime(t time.Time) time.Time {
	return t.Truncate(time.Microsecond).UTC()
}
