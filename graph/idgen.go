package graph

import uuid "github.com/satori/go.uuid"

// IDGen yields globally unique opaque string identifiers.
type IDGen interface {
	NewID() string
}

// UUIDGen is the default IDGen, backed by random (v4) UUIDs.
type UUIDGen struct{}

func (UUIDGen) NewID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// crypto/rand is exhausted or unavailable; this is not a
		// condition any caller can recover from meaningfully.
		panic(err)
	}
	return id.String()
}
