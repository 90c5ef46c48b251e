// Copyright 2025 Sozialkompass
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
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/sozialkompass/semcore/core"
)

// MUS serializers for values stored in embedded-KV backends. Timestamps are
// encoded as Unix microseconds.
var (
	vectorSer   = ord.NewSliceSer[float32](varint.Float32)
	metadataSer = ord.NewMapSer[string, string](ord.String, ord.String)

	// VectorEntryMUS serializes core.VectorEntry.
	VectorEntryMUS = vectorEntrySer{}

	// CacheRecordMUS serializes core.CacheRecord.
	CacheRecordMUS = cacheRecordSer{}
)

// MarshalVectorEntry serializes a VectorEntry to bytes.
func MarshalVectorEntry(entry *core.VectorEntry) []byte {
	buf := make([]byte, VectorEntryMUS.Size(*entry))
	VectorEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalVectorEntry deserializes a VectorEntry from bytes.
func UnmarshalVectorEntry(data []byte) (*core.VectorEntry, error) {
	entry, _, err := VectorEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalCacheRecord serializes a CacheRecord to bytes.
func MarshalCacheRecord(record *core.CacheRecord) []byte {
	buf := make([]byte, CacheRecordMUS.Size(*record))
	CacheRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalCacheRecord deserializes a CacheRecord from bytes.
func UnmarshalCacheRecord(data []byte) (*core.CacheRecord, error) {
	record, _, err := CacheRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type vectorEntrySer struct{}

func (vectorEntrySer) Marshal(e core.VectorEntry, bs []byte) (n int) {
	n = ord.String.Marshal(e.Id, bs)
	n += vectorSer.Marshal(e.Vector, bs[n:])
	n += metadataSer.Marshal(e.Metadata, bs[n:])
	n += varint.Int64.Marshal(e.IndexedAt.UnixMicro(), bs[n:])
	return
}

func (vectorEntrySer) Unmarshal(bs []byte) (e core.VectorEntry, n int, err error) {
	var n1 int
	e.Id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	e.Vector, n1, err = vectorSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Metadata, n1, err = metadataSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.IndexedAt = time.UnixMicro(micros).UTC()
	return
}

func (vectorEntrySer) Size(e core.VectorEntry) (size int) {
	size = ord.String.Size(e.Id)
	size += vectorSer.Size(e.Vector)
	size += metadataSer.Size(e.Metadata)
	size += varint.Int64.Size(e.IndexedAt.UnixMicro())
	return
}

func (vectorEntrySer) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	n1, err = vectorSer.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = metadataSer.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}

type cacheRecordSer struct{}

func (cacheRecordSer) Marshal(r core.CacheRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.Key, bs)
	n += vectorSer.Marshal(r.Vector, bs[n:])
	n += ord.String.Marshal(r.TextSnippet, bs[n:])
	n += ord.String.Marshal(r.Model, bs[n:])
	n += varint.Int64.Marshal(r.CreatedAt.UnixMicro(), bs[n:])
	return
}

func (cacheRecordSer) Unmarshal(bs []byte) (r core.CacheRecord, n int, err error) {
	var n1 int
	r.Key, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	r.Vector, n1, err = vectorSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.TextSnippet, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Model, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

func (cacheRecordSer) Size(r core.CacheRecord) (size int) {
	size = ord.String.Size(r.Key)
	size += vectorSer.Size(r.Vector)
	size += ord.String.Size(r.TextSnippet)
	size += ord.String.Size(r.Model)
	size += varint.Int64.Size(r.CreatedAt.UnixMicro())
	return
}

func (cacheRecordSer) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	n1, err = vectorSer.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}
