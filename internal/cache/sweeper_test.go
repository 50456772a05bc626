package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	removed int64
	err     error
	calls   int
}

func (f *fakeSweeper) DeleteOrphanDecks(context.Context) (int64, error) {
	f.calls++
	return f.removed, f.err
}

func TestNewSweeper_InvalidSpec(t *testing.T) {
	_, err := NewSweeper("not a schedule", &fakeSweeper{}, zap.NewNop())
	assert.Error(t, err)
}

func TestSweeper_RunOnce(t *testing.T) {
	target := &fakeSweeper{removed: 3}
	s, err := NewSweeper("@hourly", target, zap.NewNop())
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	target.err = errors.New("locked")
	s.run()
	assert.Equal(t, 2, target.calls)
}

func TestSweeper_StartStop(t *testing.T) {
	s, err := NewSweeper("0 3 * * *", &fakeSweeper{}, zap.NewNop())
	require.NoError(t, err)
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
