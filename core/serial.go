package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for persisted records. Fields are encoded in declaration
// order; IDs and order indexes as varints, vector components as raw 4-byte
// floats, timestamps as Unix microseconds.
var (
	IDMUS          = idMUS{}
	EmailMUS       = emailMUS{}
	ChunkMUS       = chunkMUS{}
	VectorEntryMUS = vectorEntryMUS{}

	timeMUS        = timeUnixMicroMUS{}
	stringSliceMUS = ord.NewSliceSer[string](ord.String)
	vectorMUS      = ord.NewSliceSer[float32](raw.Float32)
)

var (
	_ mus.Serializer[ID]          = IDMUS
	_ mus.Serializer[Email]       = EmailMUS
	_ mus.Serializer[Chunk]       = ChunkMUS
	_ mus.Serializer[VectorEntry] = VectorEntryMUS
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

// timeUnixMicroMUS encodes time.Time as Unix microseconds. Sub-microsecond
// precision and the original location are not preserved; values decode as UTC.
type timeUnixMicroMUS struct{}

func (timeUnixMicroMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeUnixMicroMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (timeUnixMicroMUS) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func (timeUnixMicroMUS) Skip(bs []byte) (int, error) {
	return varint.Int64.Skip(bs)
}

type emailMUS struct{}

func (emailMUS) Marshal(e Email, bs []byte) (n int) {
	n = IDMUS.Marshal(e.Id, bs)
	n += ord.String.Marshal(e.Subject, bs[n:])
	n += ord.String.Marshal(e.Sender, bs[n:])
	n += stringSliceMUS.Marshal(e.Recipients, bs[n:])
	n += stringSliceMUS.Marshal(e.Cc, bs[n:])
	n += stringSliceMUS.Marshal(e.Bcc, bs[n:])
	n += ord.String.Marshal(e.Body, bs[n:])
	n += timeMUS.Marshal(e.CreatedAt, bs[n:])
	return n
}

func (emailMUS) Unmarshal(bs []byte) (e Email, n int, err error) {
	var n1 int
	e.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	e.Subject, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Sender, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Recipients, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Cc, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Bcc, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Body, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (emailMUS) Size(e Email) (size int) {
	size = IDMUS.Size(e.Id)
	size += ord.String.Size(e.Subject)
	size += ord.String.Size(e.Sender)
	size += stringSliceMUS.Size(e.Recipients)
	size += stringSliceMUS.Size(e.Cc)
	size += stringSliceMUS.Size(e.Bcc)
	size += ord.String.Size(e.Body)
	size += timeMUS.Size(e.CreatedAt)
	return size
}

func (emailMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	for i := 0; i < 2; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	for i := 0; i < 3; i++ {
		n1, err = stringSliceMUS.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = timeMUS.Skip(bs[n:])
	n += n1
	return
}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += IDMUS.Marshal(c.EmailId, bs[n:])
	n += ord.String.Marshal(c.Content, bs[n:])
	n += vectorMUS.Marshal(c.Vector, bs[n:])
	n += varint.Uint64.Marshal(c.OrderIndex, bs[n:])
	n += timeMUS.Marshal(c.CreatedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	c.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	c.EmailId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.OrderIndex, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = IDMUS.Size(c.Id)
	size += IDMUS.Size(c.EmailId)
	size += ord.String.Size(c.Content)
	size += vectorMUS.Size(c.Vector)
	size += varint.Uint64.Size(c.OrderIndex)
	size += timeMUS.Size(c.CreatedAt)
	return size
}

func (chunkMUS) Skip(bs []byte) (n int, err error) {
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
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = vectorMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Uint64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = timeMUS.Skip(bs[n:])
	n += n1
	return
}

type vectorEntryMUS struct{}

func (vectorEntryMUS) Marshal(v VectorEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(v.EmailId, bs)
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	return n
}

func (vectorEntryMUS) Unmarshal(bs []byte) (v VectorEntry, n int, err error) {
	var n1 int
	v.EmailId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (vectorEntryMUS) Size(v VectorEntry) (size int) {
	size = IDMUS.Size(v.EmailId)
	size += vectorMUS.Size(v.Vector)
	return size
}

func (vectorEntryMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	n1, err = vectorMUS.Skip(bs[n:])
	n += n1
	return
}
