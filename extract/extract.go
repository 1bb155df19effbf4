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


// Package extract turns uploaded document blobs into normalized plain text.
//
// Extraction failure is terminal for a document: a PDF that cannot be
// opened will not open on retry either.
package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNotParseable indicates the document could not be opened or decoded.
var ErrNotParseable = errors.New("document is not parseable")

// Extract extracts normalized plain text from a PDF blob.
//
// Pages that fail to decode are skipped; the document only fails when it
// cannot be opened at all. A scanned PDF with no text layer yields an empty
// string, not an error.
func Extract(blob []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrNotParseable, r)
		}
	}()

	if len(blob) == 0 {
		return "", fmt.Errorf("%w: empty blob", ErrNotParseable)
	}

	reader, err := pdf.NewReader(newBytesReaderAt(blob), int64(len(blob)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotParseable, err)
	}

	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages may fail to decode; keep what we can
			slog.Debug("skipping unreadable page", "page", i, "error", err)
			continue
		}

		if pageText != "" {
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(pageText)
		}
	}

	return CleanText(builder.String()), nil
}

// CleanText normalizes extracted text: smart quotes and dashes become their
// ASCII forms, control characters are dropped, and runs of whitespace
// collapse to single spaces.
func CleanText(text string) string {
	replacer := strings.NewReplacer(
		"“", `"`, // left double quote
		"”", `"`, // right double quote
		"‘", "'", // left single quote
		"’", "'", // right single quote
		"–", "-", // en dash
		"—", "-", // em dash
		" ", " ", // non-breaking space
	)
	text = replacer.Replace(text)

	var builder strings.Builder
	builder.Grow(len(text))
	inSpace := false
	for _, r := range text {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			inSpace = true
		case r < 0x20 || r == 0x7f:
			// Drop control characters
		default:
			if inSpace && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			inSpace = false
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// bytesReaderAt implements io.ReaderAt for a byte slice.
type bytesReaderAt struct {
	data []byte
}

func newBytesReaderAt(data []byte) *bytesReaderAt {
	return &bytesReaderAt{data: data}
}

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n = copy(p, r.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}
