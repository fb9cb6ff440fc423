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

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/tenderqa/core"
)

// IDMUS encodes a core.ID as a varint.
var IDMUS = idSerializer{}

// VectorMUS encodes a []float32 as a varint length followed by fixed-width
// raw floats.
var VectorMUS = vectorSerializer{}

// float32Size is the encoded width of one raw float32.
const float32Size = 4

type idSerializer struct{}

func (idSerializer) Marshal(id core.ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSerializer) Unmarshal(bs []byte) (id core.ID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idSerializer) Size(id core.ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idSerializer) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type vectorSerializer struct{}

func (vectorSerializer) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorSerializer) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length > uint64((len(bs)-n)/float32Size) {
		return nil, n, ErrTruncatedData
	}
	v = make([]float32, length)
	for i := range v {
		var m int
		v[i], m, err = raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorSerializer) Size(v []float32) int {
	size := varint.Uint64.Size(uint64(len(v)))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (s vectorSerializer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

// MarshalID serializes an ID to bytes using MUS format.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDMUS.Size(id))
	IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalVector serializes an embedding vector to bytes using MUS format.
func MarshalVector(v []float32) []byte {
	buf := make([]byte, VectorMUS.Size(v))
	VectorMUS.Marshal(v, buf)
	return buf
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	v, n, err := VectorMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return v, nil
}
