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

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the domain types. The formats are
// versioned at the artifact level (see the bundle and session packages),
// so serializers here encode fields only, in declaration order.
var (
	IDMUS     = idMUS{}
	RecordMUS = recordMUS{}
	TurnMUS   = turnMUS{}
)

var (
	_ mus.Serializer[ID]     = IDMUS
	_ mus.Serializer[Record] = RecordMUS
	_ mus.Serializer[Turn]   = TurnMUS
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type recordMUS struct{}

func (recordMUS) Marshal(v Record, bs []byte) (n int) {
	n = ord.String.Marshal(v.Text, bs)
	n += ord.String.Marshal(v.Tag, bs[n:])
	n += varint.PositiveInt.Marshal(len(v.Responses), bs[n:])
	for _, r := range v.Responses {
		n += ord.String.Marshal(r, bs[n:])
	}
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	return
}

func (recordMUS) Unmarshal(bs []byte) (v Record, n int, err error) {
	var n1 int
	v.Text, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Tag, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var count int
	count, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Responses = make([]string, count)
	for i := 0; i < count; i++ {
		v.Responses[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	var kind int
	kind, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	v.Kind = RecordKind(kind)
	return
}

func (recordMUS) Size(v Record) (size int) {
	size = ord.String.Size(v.Text)
	size += ord.String.Size(v.Tag)
	size += varint.PositiveInt.Size(len(v.Responses))
	for _, r := range v.Responses {
		size += ord.String.Size(r)
	}
	size += varint.Int.Size(int(v.Kind))
	return
}

func (recordMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var count int
	count, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for i := 0; i < count; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	return
}

type turnMUS struct{}

func (turnMUS) Marshal(v Turn, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.SessionId, bs[n:])
	n += varint.Int.Marshal(int(v.Speaker), bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int64.Marshal(v.Timestamp.UnixMicro(), bs[n:])
	return
}

func (turnMUS) Unmarshal(bs []byte) (v Turn, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.SessionId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var speaker int
	speaker, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Speaker = Speaker(speaker)
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	v.Timestamp = time.UnixMicro(micros).UTC()
	return
}

func (turnMUS) Size(v Turn) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.SessionId)
	size += varint.Int.Size(int(v.Speaker))
	size += ord.String.Size(v.Content)
	size += varint.Int64.Size(v.Timestamp.UnixMicro())
	return
}

func (turnMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
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
