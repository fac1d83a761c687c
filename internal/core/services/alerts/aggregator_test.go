package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource implements Source for testing
type mockSource struct {
	name    string
	count   int
	err     error
	queries int
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) UnacknowledgedCount(ctx context.Context, warehouseID uuid.UUID) (int, error) {
	m.queries++
	if m.err != nil {
		return 0, m.err
	}
	return m.count, nil
}

func scopeFor(warehouseID uuid.UUID, role string) Scope {
	return Scope{WarehouseID: &warehouseID, ViewerRole: role}
}

func TestAggregator_SumsSources(t *testing.T) {
	agg := New(DefaultConfig(), nil)
	agg.AddSource(&mockSource{name: "environment", count: 3})
	agg.AddSource(&mockSource{name: "sensor", count: 4})

	count, err := agg.Count(context.Background(), scopeFor(uuid.New(), "operator"))
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestAggregator_NoScopeReturnsZeroWithoutQuerying(t *testing.T) {
	env := &mockSource{name: "environment", count: 5}
	agg := New(DefaultConfig(), nil)
	agg.AddSource(env)

	count, err := agg.Count(context.Background(), Scope{ViewerRole: "manager"})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, env.queries, "no source may be queried for an undefined scope")
}

func TestAggregator_PartialFailureTolerated(t *testing.T) {
	agg := New(DefaultConfig(), nil)
	agg.AddSource(&mockSource{name: "environment", count: 5})
	agg.AddSource(&mockSource{name: "order", err: errors.New("order service down")})

	count, err := agg.Count(context.Background(), scopeFor(uuid.New(), "operator"))
	require.NoError(t, err, "partial failure must not surface as an error")
	assert.Equal(t, 5, count)
}

func TestAggregator_TotalFailureSurfaced(t *testing.T) {
	agg := New(DefaultConfig(), nil)
	agg.AddSource(&mockSource{name: "environment", err: errors.New("down")})
	agg.AddSource(&mockSource{name: "order", err: errors.New("down")})

	_, err := agg.Count(context.Background(), scopeFor(uuid.New(), "operator"))
	assert.Error(t, err)
}

func TestAggregator_RoleGatedSource(t *testing.T) {
	env := &mockSource{name: "environment", count: 2}
	order := &mockSource{name: "order", count: 9}

	agg := New(DefaultConfig(), nil)
	agg.AddSource(env)
	agg.AddRoleGatedSource(order)

	// Operator role does not see order alerts
	count, err := agg.Count(context.Background(), scopeFor(uuid.New(), "operator"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, order.queries)

	// Manager role does
	count, err = agg.Count(context.Background(), scopeFor(uuid.New(), "manager"))
	require.NoError(t, err)
	assert.Equal(t, 11, count)
	assert.Equal(t, 1, order.queries)
}

func TestAggregator_RefreshKeepsLastKnownCountOnFailure(t *testing.T) {
	env := &mockSource{name: "environment", count: 6}
	agg := New(DefaultConfig(), nil)
	agg.AddSource(env)

	scope := scopeFor(uuid.New(), "operator")

	assert.Equal(t, 6, agg.Refresh(context.Background(), scope))

	// Transient outage: visible count must not flicker to zero
	env.err = errors.New("backend unavailable")
	assert.Equal(t, 6, agg.Refresh(context.Background(), scope))

	last, state := agg.LastCount()
	assert.Equal(t, 6, last)
	assert.Equal(t, StateReady, state)

	// Recovery picks up the fresh value
	env.err = nil
	env.count = 2
	assert.Equal(t, 2, agg.Refresh(context.Background(), scope))
}

func TestAggregator_StateTransitions(t *testing.T) {
	agg := New(DefaultConfig(), nil)
	agg.AddSource(&mockSource{name: "environment", count: 1})

	_, state := agg.LastCount()
	assert.Equal(t, StateIdle, state)

	agg.Refresh(context.Background(), scopeFor(uuid.New(), "operator"))

	_, state = agg.LastCount()
	assert.Equal(t, StateReady, state)
}

func TestAggregator_AcknowledgedSignalForcesRecount(t *testing.T) {
	env := &mockSource{name: "environment", count: 4}
	config := DefaultConfig()
	config.RefreshInterval = time.Hour // ticker must not fire during the test

	agg := New(config, nil)
	agg.AddSource(env)

	ack := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		agg.Run(ctx, scopeFor(uuid.New(), "operator"), ack)
		close(done)
	}()

	// Wait for the initial refresh
	assert.Eventually(t, func() bool {
		count, state := agg.LastCount()
		return count == 4 && state == StateReady
	}, time.Second, 10*time.Millisecond)

	// The viewer acknowledged an alert elsewhere; the count must drop now,
	// not on the next tick.
	env.count = 3
	ack <- struct{}{}

	assert.Eventually(t, func() bool {
		count, _ := agg.LastCount()
		return count == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
