package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunRecordsOutcome(t *testing.T) {
	s := New(nil)
	s.Register(Job{Name: "sweep", Interval: time.Hour, Fn: func(context.Context) (string, error) {
		return "3 sessions expired", nil
	}})
	s.Register(Job{Name: "broken", Interval: time.Hour, Fn: func(context.Context) (string, error) {
		return "", errors.New("boom")
	}})

	require.NoError(t, s.Run(context.Background(), "sweep"))
	require.NoError(t, s.Run(context.Background(), "broken"))
	assert.ErrorIs(t, s.Run(context.Background(), "missing"), ErrJobNotFound)

	items := s.List()
	require.Len(t, items, 2)
	assert.Equal(t, "broken", items[0].Name)
	assert.Equal(t, StatusFailed, items[0].Status)
	assert.Equal(t, "boom", items[0].Message)
	assert.Equal(t, StatusSucceeded, items[1].Status)
	assert.Equal(t, "3 sessions expired", items[1].Message)
	assert.Equal(t, 1, items[1].Runs)
	assert.Equal(t, "1h0m0s", items[1].Interval)
	assert.NotNil(t, items[1].LastRunAt)
	assert.NotEmpty(t, items[1].LastDuration)

	one, ok := s.Get("broken")
	require.True(t, ok)
	assert.Equal(t, items[0], one)
	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestScheduler_PanicIsRecordedAsFailure(t *testing.T) {
	s := New(nil)
	s.Register(Job{Name: "fragile", Interval: time.Hour, Fn: func(context.Context) (string, error) {
		panic("nil map")
	}})

	require.NoError(t, s.Run(context.Background(), "fragile"))
	item, ok := s.Get("fragile")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, item.Status)
	assert.Contains(t, item.Message, "nil map")
}

func TestScheduler_RunRefusesOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := New(nil)
	s.Register(Job{Name: "slow", Interval: time.Hour, Fn: func(context.Context) (string, error) {
		close(started)
		<-release
		return "", nil
	}})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), "slow") }()
	<-started

	assert.ErrorIs(t, s.Run(context.Background(), "slow"), ErrJobRunning)
	item, _ := s.Get("slow")
	assert.Equal(t, StatusRunning, item.Status)

	close(release)
	require.NoError(t, <-done)
	item, _ = s.Get("slow")
	assert.Equal(t, 1, item.Runs)
}

func TestScheduler_StartTicksUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	s := New(nil)
	s.Register(Job{Name: "tick", Interval: 10 * time.Millisecond, Fn: func(context.Context) (string, error) {
		runs.Add(1)
		return "", nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
}
