// Package closers closes things in defers where the error has nowhere else to go.
package closers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/brave-intl/momo-go/libs/logging"
)

// Log closes c and logs a failure. Closing something that is already closed is not a failure.
func Log(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}

	err := c.Close()
	if err == nil || errors.Is(err, os.ErrClosed) || errors.Is(err, http.ErrBodyReadAfterClose) {
		return
	}
	logging.Logger(ctx, "closers.Log").Warn().
		Err(err).
		Str("closer", fmt.Sprintf("%T", c)).
		Msg("failed to close")
}
