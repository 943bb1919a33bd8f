package coordinator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oebus/govee-bridge/internal/events"
	"github.com/oebus/govee-bridge/internal/goveeapi"
	"github.com/oebus/govee-bridge/internal/model"
	"github.com/oebus/govee-bridge/internal/statecache"
)

type fakeAPI struct {
	caps []model.Capability
	err  error
}

func (f *fakeAPI) DeviceState(context.Context, string, string) ([]model.Capability, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.caps, nil
}

func testDevice() model.Device {
	return model.Device{ID: "d1", SKU: "H6159", Type: model.DeviceTypeLight}
}

func TestRefreshSuccessReplacesAndNotifies(t *testing.T) {
	cache := statecache.New()
	bus := events.NewBus()
	sub := bus.Subscribe("d1")

	api := &fakeAPI{caps: []model.Capability{{
		Type:     model.CapOnOff,
		Instance: model.InstancePowerSwitch,
		State:    model.CapState{"value": float64(1)},
	}}}
	c := New(api, cache, bus, testDevice(), time.Minute, time.Second)

	require.NoError(t, c.Refresh(context.Background()))
	assert.NoError(t, c.LastError())
	assert.False(t, c.LastSuccess().IsZero())

	v, ok := cache.Get("d1", model.CapOnOff, model.InstancePowerSwitch)
	require.True(t, ok)
	assert.Equal(t, float64(1), v)

	select {
	case n := <-sub:
		assert.Equal(t, events.KindStateRefreshed, n.Kind)
		assert.Equal(t, "d1", n.Device)
	default:
		t.Fatal("expected a refresh notification")
	}
}

func TestRefreshUnauthorizedIsFailedCycleNotCacheWipe(t *testing.T) {
	cache := statecache.New()
	api := &fakeAPI{caps: []model.Capability{{
		Type:     model.CapOnOff,
		Instance: model.InstancePowerSwitch,
		State:    model.CapState{"value": float64(1)},
	}}}
	c := New(api, cache, events.NewBus(), testDevice(), time.Minute, time.Second)
	require.NoError(t, c.Refresh(context.Background()))

	api.err = fmt.Errorf("device/state: %w", goveeapi.ErrUnauthorized)
	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, goveeapi.ErrUnauthorized)
	assert.ErrorIs(t, c.LastError(), goveeapi.ErrUnauthorized)

	// Stale data stays visible until a later cycle succeeds
	v, ok := cache.Get("d1", model.CapOnOff, model.InstancePowerSwitch)
	require.True(t, ok)
	assert.Equal(t, float64(1), v)

	// Recovery clears the error
	api.err = nil
	require.NoError(t, c.Refresh(context.Background()))
	assert.NoError(t, c.LastError())
}

func TestRefreshHonorsHook(t *testing.T) {
	var hookDev model.Device
	var hookErr error
	api := &fakeAPI{err: fmt.Errorf("timeout")}
	c := New(api, statecache.New(), events.NewBus(), testDevice(), time.Minute, time.Second)
	c.OnRefresh(func(dev model.Device, _ time.Duration, err error) {
		hookDev = dev
		hookErr = err
	})

	require.Error(t, c.Refresh(context.Background()))
	assert.Equal(t, "d1", hookDev.ID)
	assert.Error(t, hookErr)
}

func TestSetInterval(t *testing.T) {
	c := New(&fakeAPI{}, statecache.New(), events.NewBus(), testDevice(), time.Minute, time.Second)
	assert.Equal(t, time.Minute, c.Interval())

	c.SetInterval(10 * time.Second)
	assert.Equal(t, 10*time.Second, c.Interval())
}

func TestStartStop(t *testing.T) {
	c := New(&fakeAPI{}, statecache.New(), events.NewBus(), testDevice(), time.Hour, time.Second)
	c.Start()
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}
