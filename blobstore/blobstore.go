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


// Package blobstore stores raw uploaded document bytes outside the record
// database. Blobs are addressed by an opaque path returned from Put; records
// carry the path, not the bytes.
package blobstore

import (
	"context"
	"errors"

	"github.com/poiesic/verdict/core"
)

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrRootRequired indicates a store was created without a root directory.
	ErrRootRequired = errors.New("blob store root directory is required")

	// ErrInvalidPath indicates a blob path that escapes the store root.
	ErrInvalidPath = errors.New("invalid blob path")
)

// Store persists raw document blobs. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put stores the blob for a document and returns its blob path.
	// Storing again under the same identifiers overwrites the previous blob.
	Put(ctx context.Context, orgID, documentID core.ID, data []byte) (string, error)

	// Get retrieves a blob by the path returned from Put.
	// Returns ErrNotFound if no blob exists at the path.
	Get(ctx context.Context, blobPath string) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, blobPath string) error
}
