package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"clinichat/internal/models"
)

// recoveryInterval is how long the failover waits before probing the primary again.
const recoveryInterval = time.Minute

// FailoverRepository serves sessions from a primary repository (redis) and
// falls back to a secondary (memory) while the primary is down. Domain errors
// (expired, not found) are answers, not outages, and never trigger failover.
type FailoverRepository struct {
	primary  Repository
	fallback Repository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	lastCheck time.Time
	mu        sync.Mutex
}

// NewFailoverRepository wraps primary with a fallback.
func NewFailoverRepository(primary, fallback Repository, logger *zerolog.Logger) *FailoverRepository {
	return &FailoverRepository{primary: primary, fallback: fallback, logger: logger}
}

func (f *FailoverRepository) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) > recoveryInterval {
		f.lastCheck = time.Now()
		return true // probe
	}
	return false
}

func (f *FailoverRepository) markDown(err error) {
	if f.isDown.CompareAndSwap(false, true) {
		f.logger.Warn().Err(err).Msg("primary session store down, using fallback")
	}
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
}

func (f *FailoverRepository) markUp() {
	if f.isDown.CompareAndSwap(true, false) {
		f.logger.Info().Msg("primary session store recovered")
	}
}

func isDomainErr(err error) bool {
	return errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrSessionExpired)
}

// Get loads a session, preferring the primary store.
func (f *FailoverRepository) Get(ctx context.Context, id string) (*Session, error) {
	if f.usePrimary() {
		s, err := f.primary.Get(ctx, id)
		if err == nil || isDomainErr(err) {
			f.markUp()
			return s, err
		}
		f.markDown(err)
	}
	return f.fallback.Get(ctx, id)
}

// Save writes the session to whichever store is serving. While the primary is
// up the fallback is kept warm too, so a failover mid-conversation keeps state.
func (f *FailoverRepository) Save(ctx context.Context, s *Session) error {
	_ = f.fallback.Save(ctx, s)
	if f.usePrimary() {
		if err := f.primary.Save(ctx, s); err != nil {
			f.markDown(err)
			return nil // fallback already has it
		}
		f.markUp()
	}
	return nil
}

// Delete removes the session from both stores.
func (f *FailoverRepository) Delete(ctx context.Context, id string) error {
	_ = f.fallback.Delete(ctx, id)
	if f.usePrimary() {
		if err := f.primary.Delete(ctx, id); err != nil {
			f.markDown(err)
		} else {
			f.markUp()
		}
	}
	return nil
}
