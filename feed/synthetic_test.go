package feed

import (
	"testing"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/peterldowns/testy/assert"
)

func testSyntheticConfig(seed int64) *SyntheticConfig {
	return &SyntheticConfig{
		Symbol:        "AAPL",
		StartPrice:    defaultStartPrice,
		Drift:         defaultDrift,
		WaveAmplitude: defaultWaveAmplitude,
		WaveLength:    defaultWaveLength,
		Jitter:        defaultJitter,
		Seed:          seed,
		Interval:      time.Millisecond,
		OnTick:        func(shared.Tick) {},
		OnStatus:      func(shared.StatusUpdate) {},
	}
}

func TestSyntheticDeterminism(t *testing.T) {
	first := NewSyntheticFeed(testSyntheticConfig(7))
	second := NewSyntheticFeed(testSyntheticConfig(7))
	diverged := NewSyntheticFeed(testSyntheticConfig(8))

	// Ensure two runs with the same seed generate the same series and a run
	// with a different seed does not.
	matched := 0
	for idx := 0; idx < 200; idx++ {
		a, b, c := first.Step(), second.Step(), diverged.Step()
		assert.Equal(t, a.Price, b.Price)
		assert.Equal(t, a.Volume, b.Volume)
		if a.Price == c.Price {
			matched++
		}
	}
	assert.True(t, matched < 200)
}

func TestSyntheticModelShape(t *testing.T) {
	cfg := testSyntheticConfig(1)
	cfg.Jitter = 0
	feed := NewSyntheticFeed(cfg)

	// Ensure the jitter-free series stays inside the drifted wave envelope.
	for idx := 0; idx < 500; idx++ {
		tick := feed.Step()
		assert.True(t, tick.Price > cfg.StartPrice*0.9-cfg.WaveAmplitude)
		assert.True(t, tick.Price < cfg.StartPrice*1.2+cfg.WaveAmplitude)
	}
}

func TestSyntheticLifecycle(t *testing.T) {
	ticks := make(chan shared.Tick, 64)
	statuses := make(chan shared.StatusUpdate, 16)

	cfg := testSyntheticConfig(1)
	cfg.OnTick = func(tick shared.Tick) {
		select {
		case ticks <- tick:
		default:
		}
	}
	cfg.OnStatus = func(update shared.StatusUpdate) {
		statuses <- update
	}

	feed := NewSyntheticFeed(cfg)

	assert.NoError(t, feed.Connect())
	assert.Equal(t, shared.Connecting, (<-statuses).Status)
	assert.Equal(t, shared.Connected, (<-statuses).Status)

	// Ensure ticks flow for the configured symbol.
	select {
	case tick := <-ticks:
		assert.Equal(t, "AAPL", tick.Market)
		assert.True(t, tick.Price > 0)
	case <-time.After(time.Second * 5):
		t.Fatal("expected a generated tick")
	}

	// Ensure a symbol change relabels subsequent ticks.
	feed.ChangeSymbol("MSFT")
	deadline := time.After(time.Second * 5)
	for {
		var tick shared.Tick
		select {
		case tick = <-ticks:
		case <-deadline:
			t.Fatal("expected a tick for the changed symbol")
		}
		if tick.Market == "MSFT" {
			break
		}
	}

	// Ensure disconnecting is terminal and idempotent.
	feed.Disconnect()
	assert.Equal(t, shared.Disconnected, (<-statuses).Status)
	feed.Disconnect()
	select {
	case update := <-statuses:
		t.Fatalf("unexpected status after disconnect: %s", update.Status.String())
	case <-time.After(time.Millisecond * 50):
		// do nothing.
	}
}
