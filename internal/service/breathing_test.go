package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

func TestBreathingCatalog(t *testing.T) {
	svc, err := NewBreathingService()
	require.NoError(t, err)
	assert.Len(t, svc.List(), 3)

	p, err := svc.Get("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBreathingPattern, p.Key)
	assert.Equal(t, 19*time.Second, p.CycleDuration())

	p, err = svc.Get("Square")
	require.NoError(t, err)
	assert.Equal(t, "box", p.Key)

	_, err = svc.Get("panic")
	assert.ErrorIs(t, err, domain.ErrPatternNotFound)
}

func TestBreathingSchedule(t *testing.T) {
	svc, err := NewBreathingService()
	require.NoError(t, err)
	p, err := svc.Get("coherent")
	require.NoError(t, err)

	steps := svc.Schedule(p, 2)
	require.Len(t, steps, 4)
	assert.Equal(t, 1, steps[0].Cycle)
	assert.Equal(t, time.Duration(0), steps[0].Offset)
	assert.Equal(t, 2, steps[3].Cycle)
	assert.Equal(t, 15*time.Second, steps[3].Offset)

	assert.Len(t, svc.Schedule(p, 0), 2)
	assert.Len(t, svc.Schedule(p, 100), 2*config.MaxBreathingCycles)
}

func TestBreathingCatalogRejectsBadInput(t *testing.T) {
	_, err := parseBreathingCatalog([]byte("patterns: []"))
	assert.Error(t, err)

	_, err = parseBreathingCatalog([]byte("patterns:\n  - key: x\n    phases:\n      - { name: in, seconds: 0 }\n"))
	assert.Error(t, err)

	_, err = parseBreathingCatalog([]byte(":::"))
	assert.Error(t, err)
}
