package closers

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type closer struct {
	err    error
	closed int
}

func (c *closer) Close() error {
	c.closed++
	return c.err
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	ok := &closer{}
	Log(ctx, ok)
	assert.Equal(t, 1, ok.closed)
	assert.Zero(t, buf.Len())

	Log(ctx, &closer{err: os.ErrClosed})
	assert.Zero(t, buf.Len())

	Log(ctx, &closer{err: errors.New("disk full")})
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), "*closers.closer")

	Log(ctx, nil)
}
