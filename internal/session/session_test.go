package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	st := NewStore(ttl)
	st.now = clock.now
	return st, clock
}

func TestCreateAndGet(t *testing.T) {
	st, _ := newTestStore(time.Hour)
	s := st.Create(6634104, RoleInvestor)

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, int64(6634104), got.SubjectID)
	assert.Equal(t, RoleInvestor, got.Role)

	_, err = st.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSlidingExpiry(t *testing.T) {
	st, clock := newTestStore(10 * time.Minute)
	s := st.Create(1, RoleInnovator)

	clock.advance(9 * time.Minute)
	_, err := st.Get(s.ID)
	require.NoError(t, err)

	clock.advance(9 * time.Minute)
	_, err = st.Get(s.ID)
	require.NoError(t, err, "access must extend the expiry")

	clock.advance(11 * time.Minute)
	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, st.Len())
}

func TestTeardownRunsHooksOnce(t *testing.T) {
	st, _ := newTestStore(time.Hour)
	s := st.Create(1, RoleInvestor)

	calls := 0
	s.OnTeardown(func() { calls++ })
	s.OnTeardown(func() { calls++ })

	require.NoError(t, st.Teardown(s.ID))
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, st.Teardown(s.ID), ErrSessionNotFound)
	assert.Equal(t, 2, calls)

	late := false
	s.OnTeardown(func() { late = true })
	assert.True(t, late, "hooks added after teardown run immediately")
}

func TestTeardownCancel(t *testing.T) {
	st, _ := newTestStore(time.Hour)
	s := st.Create(1, RoleInvestor)

	var ran []string
	cancelA := s.OnTeardown(func() { ran = append(ran, "a") })
	s.OnTeardown(func() { ran = append(ran, "b") })
	cancelC := s.OnTeardown(func() { ran = append(ran, "c") })
	assert.Equal(t, 3, s.TeardownHooks())

	cancelA()
	cancelA()
	cancelC()
	assert.Equal(t, 1, s.TeardownHooks())

	require.NoError(t, st.Teardown(s.ID))
	assert.Equal(t, []string{"b"}, ran)
	assert.Equal(t, 0, s.TeardownHooks())
}

func TestSweepExpired(t *testing.T) {
	st, clock := newTestStore(time.Minute)
	a := st.Create(1, RoleInvestor)
	st.Create(2, RoleInvestor)

	ended := false
	a.OnTeardown(func() { ended = true })

	clock.advance(2 * time.Minute)
	st.Create(3, RoleInnovator)

	assert.Equal(t, 2, st.SweepExpired())
	assert.Equal(t, 1, st.Len())
	assert.True(t, ended)
}

func TestBiddedMemory(t *testing.T) {
	st, _ := newTestStore(time.Hour)
	s := st.Create(6634104, RoleInvestor)

	assert.False(t, s.HasBidded(4001))
	s.MarkBidded(4010)
	s.MarkBidded(4001)
	assert.True(t, s.HasBidded(4001))
	assert.Equal(t, []int64{4001, 4010}, s.BiddedProducts())

	s.ForgetBidded(4001)
	assert.False(t, s.HasBidded(4001))
}

func TestHandoff(t *testing.T) {
	st, _ := newTestStore(time.Hour)
	s := st.Create(1, RoleInnovator)

	_, ok := s.Handoff(DetailHandoffKey(4010))
	assert.False(t, ok)

	s.SetHandoff(DetailHandoffKey(4010), "accepted")
	v, ok := s.Handoff("detail:4010")
	require.True(t, ok)
	assert.Equal(t, "accepted", v)
}

func TestSweeperRejectsBadSpec(t *testing.T) {
	_, err := NewSweeper(NewStore(time.Minute), "not a schedule")
	assert.Error(t, err)
}

func TestSweeperStopsOnCancel(t *testing.T) {
	sw, err := NewSweeper(NewStore(time.Minute), "@every 1h")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
