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
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/pagesift/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	return core.ID(v), err
}

// MarshalTextSpan serializes a TextSpan to bytes.
func MarshalTextSpan(span *core.TextSpan) []byte {
	buf := make([]byte, textSpanSize(span))
	n := varint.Uint64.Marshal(uint64(span.Id), buf)
	n += ord.String.Marshal(span.SourceID, buf[n:])
	n += ord.Bool.Marshal(span.PageDate.Valid, buf[n:])
	if span.PageDate.Valid {
		n += varint.Int64.Marshal(span.PageDate.Time.Unix(), buf[n:])
	}
	n += varint.Int.Marshal(span.PageSequence, buf[n:])
	n += ord.String.Marshal(span.Text, buf[n:])
	for _, f := range [...]float64{span.BBox.X0, span.BBox.Y0, span.BBox.X1, span.BBox.Y1, span.GlyphSize} {
		n += raw.Float64.Marshal(f, buf[n:])
	}
	return buf
}

func textSpanSize(span *core.TextSpan) int {
	size := varint.Uint64.Size(uint64(span.Id))
	size += ord.String.Size(span.SourceID)
	size += ord.Bool.Size(span.PageDate.Valid)
	if span.PageDate.Valid {
		size += varint.Int64.Size(span.PageDate.Time.Unix())
	}
	size += varint.Int.Size(span.PageSequence)
	size += ord.String.Size(span.Text)
	size += 5 * raw.Float64.Size(0)
	return size
}

// UnmarshalTextSpan deserializes a TextSpan from bytes.
func UnmarshalTextSpan(data []byte) (*core.TextSpan, error) {
	var (
		span core.TextSpan
		n    int
	)
	id, m, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, wrapDecode("id", err)
	}
	span.Id = core.ID(id)
	n += m

	if span.SourceID, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, wrapDecode("source", err)
	}
	n += m

	valid, m, err := ord.Bool.Unmarshal(data[n:])
	if err != nil {
		return nil, wrapDecode("date flag", err)
	}
	n += m
	if valid {
		secs, m, err := varint.Int64.Unmarshal(data[n:])
		if err != nil {
			return nil, wrapDecode("date", err)
		}
		n += m
		span.PageDate = core.Date{Time: time.Unix(secs, 0).UTC(), Valid: true}
	}

	if span.PageSequence, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, wrapDecode("page sequence", err)
	}
	n += m

	if span.Text, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, wrapDecode("text", err)
	}
	n += m

	floats := [...]*float64{&span.BBox.X0, &span.BBox.Y0, &span.BBox.X1, &span.BBox.Y1, &span.GlyphSize}
	for _, f := range floats {
		if *f, m, err = raw.Float64.Unmarshal(data[n:]); err != nil {
			return nil, wrapDecode("bbox", err)
		}
		n += m
	}
	return &span, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *Checkpoint) []byte {
	updated := checkpoint.UpdatedAt.UnixMicro()
	size := ord.String.Size(checkpoint.Source) +
		ord.String.Size(checkpoint.Fingerprint) +
		varint.Int.Size(checkpoint.Spans) +
		varint.Int64.Size(updated)
	buf := make([]byte, size)
	n := ord.String.Marshal(checkpoint.Source, buf)
	n += ord.String.Marshal(checkpoint.Fingerprint, buf[n:])
	n += varint.Int.Marshal(checkpoint.Spans, buf[n:])
	varint.Int64.Marshal(updated, buf[n:])
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*Checkpoint, error) {
	var (
		cp  Checkpoint
		n   int
		m   int
		err error
	)
	if cp.Source, m, err = ord.String.Unmarshal(data); err != nil {
		return nil, wrapDecode("source", err)
	}
	n += m
	if cp.Fingerprint, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, wrapDecode("fingerprint", err)
	}
	n += m
	if cp.Spans, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, wrapDecode("spans", err)
	}
	n += m
	updated, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, wrapDecode("updated", err)
	}
	cp.UpdatedAt = time.UnixMicro(updated).UTC()
	return &cp, nil
}

func wrapDecode(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, field, err)
}
