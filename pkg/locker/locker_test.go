package locker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	clinicianID := uuid.New()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := km.WithClinicianLock(context.Background(), clinicianID, func(ctx context.Context) error {
				counter++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	a, b := uuid.New(), uuid.New()

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = km.WithClinicianLock(context.Background(), a, func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()

	<-held
	// Lock for a different clinician must not block.
	done := make(chan struct{})
	go func() {
		_ = km.WithClinicianLock(context.Background(), b, func(ctx context.Context) error {
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock for a different clinician blocked")
	}
	close(release)
}

func TestKeyedMutexCancelledContext(t *testing.T) {
	km := NewKeyedMutex()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := km.WithClinicianLock(ctx, uuid.New(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}
