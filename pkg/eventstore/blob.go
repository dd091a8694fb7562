// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package eventstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/teradata-labs/skein/pkg/observability"
)

// PutBlob content-addresses content by its SHA-256 hash, compresses it with
// zstd, and stores (or reference-counts) it. An event payload that exceeds
// InlineSizeThreshold should reference the returned Blob.ID instead of
// inlining the content (spec.md §3 Blob entity).
func (s *Store) PutBlob(ctx context.Context, content []byte, mimeType string) (*Blob, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanEventStoreAppend+".put_blob")
	defer s.tracer.EndSpan(span)

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	var existingID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM blobs WHERE sha256 = ?`, hash).Scan(&existingID)
	if err == nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE blobs SET ref_count = ref_count + 1 WHERE id = ?`, existingID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("eventstore: put_blob: bump ref count: %w", err)
		}
		return s.getBlob(ctx, existingID)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: put_blob: init zstd encoder: %w", err)
	}
	compressed := enc.EncodeAll(content, nil)
	enc.Close()

	b := &Blob{
		ID:              uuid.NewString(),
		SHA256:          hash,
		Bytes:           compressed,
		MimeType:        mimeType,
		OriginalSize:    int64(len(content)),
		CompressedSize:  int64(len(compressed)),
		CompressionAlgo: "zstd",
		RefCount:        1,
		CreatedAt:       time.Now().UTC(),
	}
	if mimeType == "" {
		b.MimeType = "application/octet-stream"
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO blobs (id, sha256, bytes, mime_type, original_size, compressed_size, compression_algo, ref_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SHA256, b.Bytes, b.MimeType, b.OriginalSize, b.CompressedSize, b.CompressionAlgo, b.RefCount, b.CreatedAt.Unix())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eventstore: put_blob: insert: %w", err)
	}
	return b, nil
}

// GetBlobContent loads and decompresses a blob's content by id.
func (s *Store) GetBlobContent(ctx context.Context, blobID string) ([]byte, error) {
	s.mu.RLock()
	b, err := s.getBlob(ctx, blobID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if b.CompressionAlgo != "zstd" {
		return b.Bytes, nil
	}
	dec, err := zstd.NewReader(bytes.NewReader(b.Bytes))
	if err != nil {
		return nil, fmt.Errorf("eventstore: get_blob: init zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("eventstore: get_blob: decompress: %w", err)
	}
	return out, nil
}

func (s *Store) getBlob(ctx context.Context, blobID string) (*Blob, error) {
	var b Blob
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sha256, bytes, mime_type, original_size, compressed_size, compression_algo, ref_count, created_at
		FROM blobs WHERE id = ?`, blobID).Scan(
		&b.ID, &b.SHA256, &b.Bytes, &b.MimeType, &b.OriginalSize, &b.CompressedSize, &b.CompressionAlgo, &b.RefCount, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("eventstore: get_blob %q: %w", blobID, err)
	}
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &b, nil
}
