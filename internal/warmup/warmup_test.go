package warmup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"econdash/internal/batch"
	"econdash/internal/warmup"
)

func TestRun_CountsPerSource(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	fred := NewMockBatcher(ctrl)
	fred.EXPECT().Name().Return("FRED").AnyTimes()
	fred.EXPECT().MaxSymbols().Return(50).AnyTimes()
	fred.EXPECT().FetchAll(gomock.Any(), []string{"GDP", "UNRATE"}).Return(map[string]batch.Result{
		"GDP":    {Symbol: "GDP", Data: []byte(`{}`)},
		"UNRATE": {Symbol: "UNRATE", Err: "boom"},
	}, nil)

	yahoo := NewMockBatcher(ctrl)
	yahoo.EXPECT().Name().Return("Yahoo").AnyTimes()
	yahoo.EXPECT().MaxSymbols().Return(50).AnyTimes()
	yahoo.EXPECT().FetchAll(gomock.Any(), []string{"AAPL"}).Return(nil, errors.New("down"))

	job := warmup.New([]warmup.Target{
		{Batcher: fred, Symbols: []string{"GDP", " UNRATE", "GDP"}},
		{Batcher: yahoo, Symbols: []string{"AAPL"}},
	})

	// Act
	stats := job.Run(t.Context())

	// Assert
	require.Len(t, stats, 2)
	require.Equal(t, "FRED", stats[0].Source)
	require.Equal(t, 1, stats[0].Succeeded)
	require.Equal(t, 1, stats[0].Failed)
	require.NoError(t, stats[0].Err)

	require.Equal(t, "Yahoo", stats[1].Source)
	require.Equal(t, 1, stats[1].Failed)
	require.EqualError(t, stats[1].Err, "down")
}

func TestRun_ChunksByMaxSymbols(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	b := NewMockBatcher(ctrl)
	b.EXPECT().Name().Return("Yahoo").AnyTimes()
	b.EXPECT().MaxSymbols().Return(2).AnyTimes()
	gomock.InOrder(
		b.EXPECT().FetchAll(gomock.Any(), []string{"A", "B"}).Return(map[string]batch.Result{
			"A": {Symbol: "A", Data: []byte(`1`)}, "B": {Symbol: "B", Data: []byte(`2`)},
		}, nil),
		b.EXPECT().FetchAll(gomock.Any(), []string{"C"}).Return(map[string]batch.Result{
			"C": {Symbol: "C", Data: []byte(`3`)},
		}, nil),
	)

	// Act
	stats := warmup.New([]warmup.Target{{Batcher: b, Symbols: []string{"A", "B", "C"}}}).Run(t.Context())

	// Assert
	require.Equal(t, 3, stats[0].Succeeded)
}

func TestRun_EmptyWatchlistSkipsFetch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	b := NewMockBatcher(ctrl)
	b.EXPECT().Name().Return("FRED").AnyTimes()

	stats := warmup.New([]warmup.Target{{Batcher: b}}).Run(t.Context())
	require.Equal(t, warmup.Stats{Source: "FRED"}, stats[0])
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	t.Parallel()

	job := warmup.New(nil)
	require.ErrorContains(t, job.Start("not a schedule"), "warmup schedule")
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	job := warmup.New(nil)
	require.NoError(t, job.Start("@every 1h"))
	require.Error(t, job.Start("@every 1h"))

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	job.Stop(ctx)
}
