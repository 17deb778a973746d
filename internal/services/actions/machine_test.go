package actions

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/domain"
)

func TestMachine_Transitions(t *testing.T) {
	m := NewMachine(zap.NewNop())
	assert.Equal(t, domain.ActionNone, m.Current())

	require.NoError(t, m.Open(domain.ActionBuyIn))
	assert.Equal(t, domain.ActionBuyIn, m.Current())

	require.NoError(t, m.Open(domain.ActionTransfer))
	assert.Equal(t, domain.ActionTransfer, m.Current())

	m.Close()
	assert.Equal(t, domain.ActionNone, m.Current())

	m.Close()
	assert.Equal(t, domain.ActionNone, m.Current())

	require.NoError(t, m.Open(domain.ActionRefund))
	require.NoError(t, m.Open(domain.ActionNone))
	assert.Equal(t, domain.ActionNone, m.Current())
}

func TestMachine_RejectsUnknown(t *testing.T) {
	m := NewMachine(zap.NewNop())
	require.NoError(t, m.Open(domain.ActionRefund))

	err := m.Open(domain.ActionKind(42))
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.Equal(t, domain.ActionRefund, m.Current())
}

func TestMachine_BroadcastsTransitions(t *testing.T) {
	m := NewMachine(zap.NewNop())
	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	require.NoError(t, m.Open(domain.ActionBuyIn))
	require.NoError(t, m.Open(domain.ActionBuyIn))
	m.Close()

	assert.Equal(t, Transition{From: domain.ActionNone, To: domain.ActionBuyIn}, <-ch)
	assert.Equal(t, Transition{From: domain.ActionBuyIn, To: domain.ActionNone}, <-ch)
	select {
	case tr := <-ch:
		t.Fatalf("unexpected transition %+v", tr)
	default:
	}
}

func TestMachine_AtMostOneOpen(t *testing.T) {
	m := NewMachine(zap.NewNop())
	kinds := []domain.ActionKind{domain.ActionBuyIn, domain.ActionRefund, domain.ActionTransfer}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(k domain.ActionKind) {
			defer wg.Done()
			_ = m.Open(k)
		}(kinds[i%len(kinds)])
	}
	wg.Wait()

	assert.Contains(t, kinds, m.Current())
}
