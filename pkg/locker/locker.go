// Package locker serializes check-then-write sequences per clinician so two
// concurrent bookings for the same clinician can never both pass the
// conflict check.
package locker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrLockNotAcquired = errors.New("clinician lock not acquired")

// Locker guards a critical section keyed by clinician ID. Operations for
// different clinicians never contend.
type Locker interface {
	WithClinicianLock(ctx context.Context, clinicianID uuid.UUID, fn func(ctx context.Context) error) error
}

// KeyedMutex is an in-process Locker for single-instance deployments.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (k *KeyedMutex) lockFor(clinicianID uuid.UUID) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[clinicianID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[clinicianID] = m
	}
	return m
}

func (k *KeyedMutex) WithClinicianLock(ctx context.Context, clinicianID uuid.UUID, fn func(ctx context.Context) error) error {
	m := k.lockFor(clinicianID)
	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
