package scale

import (
	"testing"
	"time"

	"github.com/itohio/golarder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMock(t *testing.T) (*Mock, *time.Time) {
	t.Helper()
	now := time.Unix(1700000000, 0)
	m := NewMock(&config.MockConfig{
		Offset:        8000,
		Load:          -27880,
		NoiseLevel:    0,
		PressPeriod:   10 * time.Second,
		PressDuration: 2 * time.Second,
	})
	m.now = func() time.Time { return now }
	require.NoError(t, m.Connect())
	return m, &now
}

func TestMock_NotConnected(t *testing.T) {
	m := NewMock(nil)
	_, err := m.ReadAverage(1)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = m.ButtonPressed()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, m.SetLED(true), ErrNotConnected)
}

func TestMock_Connect(t *testing.T) {
	m, _ := newTestMock(t)
	assert.True(t, m.IsConnected())
	assert.Error(t, m.Connect())

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
}

func TestMock_Cycle(t *testing.T) {
	m, now := newTestMock(t)
	start := *now

	tests := []struct {
		name    string
		elapsed time.Duration
		raw     float64
		pressed bool
	}{
		{name: "empty", elapsed: 0, raw: 8000, pressed: false},
		{name: "loaded", elapsed: 5 * time.Second, raw: 8000 - 27880, pressed: false},
		{name: "loaded and pressed", elapsed: 9 * time.Second, raw: 8000 - 27880, pressed: true},
		{name: "next period empty", elapsed: 11 * time.Second, raw: 8000, pressed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*now = start.Add(tt.elapsed)

			raw, err := m.ReadAverage(10)
			require.NoError(t, err)
			assert.InDelta(t, tt.raw, raw, 1e-9)

			pressed, err := m.ButtonPressed()
			require.NoError(t, err)
			assert.Equal(t, tt.pressed, pressed)
		})
	}
}

func TestMock_PowerDown(t *testing.T) {
	m, _ := newTestMock(t)

	require.NoError(t, m.PowerDown())
	assert.True(t, m.PoweredDown())
	_, err := m.ReadAverage(1)
	assert.ErrorIs(t, err, ErrPoweredDown)

	require.NoError(t, m.PowerUp())
	assert.False(t, m.PoweredDown())
	_, err = m.ReadAverage(1)
	assert.NoError(t, err)
}

func TestMock_Noise(t *testing.T) {
	m := NewMock(&config.MockConfig{Offset: 100, NoiseLevel: 5})
	require.NoError(t, m.Connect())

	for i := 0; i < 100; i++ {
		v, err := m.ReadAverage(1)
		require.NoError(t, err)
		assert.InDelta(t, 100, v, 5)
	}
}

func TestMock_LED(t *testing.T) {
	m, _ := newTestMock(t)

	require.NoError(t, m.SetLED(true))
	assert.True(t, m.LED())
	require.NoError(t, m.Close())
	assert.False(t, m.LED())
}
