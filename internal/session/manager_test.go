package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
)

// fakeAuthenticator counts login sequences and mints sessions stamped by the
// test clock.
type fakeAuthenticator struct {
	logins atomic.Int64
	clock  func() time.Time
	delay  time.Duration
	err    error
}

func (f *fakeAuthenticator) Login(ctx context.Context) (*schemas.Session, error) {
	f.logins.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &schemas.Session{
		Token:      "tok-0123456789abcdef",
		Cookies:    []schemas.Cookie{{Name: "PHPSESSID", Value: "jar"}},
		AcquiredAt: f.clock(),
		TTL:        25 * time.Minute,
	}, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T) (*Manager, *fakeAuthenticator, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	auth := &fakeAuthenticator{clock: clock.Now}
	return NewManager(auth, zap.NewNop(), WithClock(clock.Now)), auth, clock
}

func TestAcquireReusesSessionWithinTTL(t *testing.T) {
	m, auth, clock := newTestManager(t)
	ctx := context.Background()

	first, err := m.Acquire(ctx)
	require.NoError(t, err)

	clock.Advance(24 * time.Minute)
	second, err := m.Acquire(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second, "session inside the TTL window is reused")
	assert.EqualValues(t, 1, auth.logins.Load(), "at most one login sequence")
}

func TestAcquireRefreshesAfterExpiry(t *testing.T) {
	m, auth, clock := newTestManager(t)
	ctx := context.Background()

	first, err := m.Acquire(ctx)
	require.NoError(t, err)

	clock.Advance(26 * time.Minute)
	second, err := m.Acquire(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second, "expired session is replaced, never reused")
	assert.EqualValues(t, 2, auth.logins.Load())
}

func TestInvalidateForcesLoginDespiteRemainingTTL(t *testing.T) {
	m, auth, clock := newTestManager(t)
	ctx := context.Background()

	_, err := m.Acquire(ctx)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	m.Invalidate()

	_, err = m.Acquire(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, auth.logins.Load())
}

func TestConcurrentAcquiresCoalesce(t *testing.T) {
	m, auth, _ := newTestManager(t)
	auth.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	sessions := make([]*schemas.Session, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Acquire(context.Background())
			require.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, auth.logins.Load(), "concurrent callers share one in-flight login")
	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
}

func TestLoginFailurePropagatesAndIsNotCached(t *testing.T) {
	m, auth, _ := newTestManager(t)
	auth.err = schemas.NewFailure(schemas.KindAuthentication, "dsrdata", "bad credentials", nil)

	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, schemas.IsKind(err, schemas.KindAuthentication))

	// A later call retries the login rather than serving a poisoned cache.
	auth.err = nil
	s, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.EqualValues(t, 2, auth.logins.Load())
}
