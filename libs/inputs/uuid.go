package inputs

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrEmptyUUID is returned for a missing uuid parameter
	ErrEmptyUUID = errors.New("uuid cannot be empty")
	// ErrNotUUID is returned for a parameter that does not parse as a uuid
	ErrNotUUID = errors.New("not a valid uuid")
)

// UUID is an Input for identifiers passed in the url.
type UUID struct {
	value uuid.UUID
}

// Value is the parsed uuid, uuid.Nil until Decode succeeds.
func (u *UUID) Value() uuid.UUID {
	return u.value
}

func (u *UUID) String() string {
	return u.value.String()
}

func (u *UUID) Decode(ctx context.Context, raw []byte) error {
	if len(raw) == 0 {
		return ErrEmptyUUID
	}
	v, err := uuid.ParseBytes(raw)
	if err != nil {
		return ErrNotUUID
	}
	u.value = v
	return nil
}

// Validate rejects the nil uuid, no record is ever stored under it.
func (u *UUID) Validate(ctx context.Context) error {
	if u.value == uuid.Nil {
		return ErrNotUUID
	}
	return nil
}
