package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaintainer struct {
	purged, unlocked atomic.Int32
}

func (f *fakeMaintainer) PurgeExpiredTokens(context.Context) (int64, error) {
	f.purged.Add(1)
	return 2, nil
}

func (f *fakeMaintainer) UnlockExpiredPINs(context.Context) (int64, error) {
	f.unlocked.Add(1)
	return 0, errors.New("db down")
}

func TestSchedulerRegistersJobs(t *testing.T) {
	m := &fakeMaintainer{}
	s, err := New(m)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	// gocron runs every job once right after start
	s.Start()
	t.Cleanup(s.Stop)
	assert.Eventually(t, func() bool {
		return m.purged.Load() == 1 && m.unlocked.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunSwallowsErrors(t *testing.T) {
	m := &fakeMaintainer{}
	run("unlock_pins", m.UnlockExpiredPINs)
	run("purge_reset_tokens", m.PurgeExpiredTokens)
	assert.Equal(t, int32(1), m.unlocked.Load())
	assert.Equal(t, int32(1), m.purged.Load())
}
