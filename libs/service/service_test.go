package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brave-intl/momo-go/libs/clients"
)

func TestJobWorker_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs int32
	job := func(ctx context.Context) (bool, error) {
		if atomic.AddInt32(&runs, 1) == 3 {
			cancel()
		}
		return true, nil
	}

	done := make(chan struct{})
	go func() {
		JobWorker(ctx, job, time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job worker did not stop after cancel")
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))
}

func TestJobWorker_ContinuesAfterError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs int32
	job := func(ctx context.Context) (bool, error) {
		n := atomic.AddInt32(&runs, 1)
		if n == 1 {
			return false, clients.NewHTTPError(errors.New("boom"), "/collection/token/", "token", http.StatusUnauthorized, nil)
		}
		cancel()
		return true, nil
	}

	JobWorker(ctx, job, time.Millisecond)

	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}
