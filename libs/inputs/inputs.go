// Package inputs reads and checks request parameters and bodies in one step.
package inputs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	errorutils "github.com/brave-intl/momo-go/libs/errors"
	"github.com/brave-intl/momo-go/libs/requestutils"
)

// Input is a request parameter or body that knows how to read and check itself.
type Input interface {
	Decode(ctx context.Context, raw []byte) error
	Validate(ctx context.Context) error
}

// Parse decodes raw into in and validates the result.
// Decoding and validation failures are reported together as a MultiError.
func Parse(ctx context.Context, in Input, raw []byte) error {
	me := new(errorutils.MultiError)
	if err := in.Decode(ctx, raw); err != nil {
		me.Append(fmt.Errorf("failed decoding: %w", err))
	}
	if err := in.Validate(ctx); err != nil {
		me.Append(fmt.Errorf("failed validation: %w", err))
	}
	if me.Count() > 0 {
		return me
	}
	return nil
}

// ParseString is Parse for a path or query parameter.
func ParseString(ctx context.Context, in Input, raw string) error {
	return Parse(ctx, in, []byte(raw))
}

// ParseReader is Parse for a request body, bodies over 10MB are refused.
func ParseReader(ctx context.Context, in Input, body io.Reader) error {
	raw, err := requestutils.Read(ctx, body)
	if err != nil {
		return err
	}
	return Parse(ctx, in, raw)
}

// JSON decodes raw into v, unknown fields are an error.
func JSON(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
