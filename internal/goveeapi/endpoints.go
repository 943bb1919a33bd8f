package goveeapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/oebus/govee-bridge/internal/model"
)

// Devices fetches the account's device listing.
func (c *Client) Devices(ctx context.Context) ([]model.Device, error) {
	data, err := c.Get(ctx, "user/devices")
	if err != nil {
		return nil, err
	}

	var devices []model.Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("decode device listing: %w", err)
	}
	return devices, nil
}

// DeviceState fetches the full capability snapshot for one device.
func (c *Client) DeviceState(ctx context.Context, sku, device string) ([]model.Capability, error) {
	payload := map[string]any{
		"payload": map[string]any{
			"sku":    sku,
			"device": device,
		},
	}

	raw, err := c.Post(ctx, "device/state", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Payload struct {
			Capabilities []model.Capability `json:"capabilities"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode state for %s: %w", device, err)
	}
	return resp.Payload.Capabilities, nil
}

// Control sends one or more capability commands as a single control request
// and returns the echoed capability values. A single command is sent as a
// bare object, multiple commands as an ordered array, so partial application
// under request loss cannot happen.
func (c *Client) Control(ctx context.Context, sku, device string, cmds []model.Command) ([]model.Capability, error) {
	if len(cmds) == 0 {
		return nil, fmt.Errorf("control %s: no commands", device)
	}

	var capability any = cmds
	if len(cmds) == 1 {
		capability = cmds[0]
	}
	payload := map[string]any{
		"payload": map[string]any{
			"sku":        sku,
			"device":     device,
			"capability": capability,
		},
	}

	raw, err := c.Post(ctx, "device/control", payload)
	if err != nil {
		return nil, err
	}

	echoes, err := parseControlEchoes(raw)
	if err != nil {
		log.Error().Err(err).Str("device", device).Msg("Control echo malformed")
		return nil, err
	}
	if len(echoes) == 0 {
		return nil, fmt.Errorf("control %s: response carried no capability echo", device)
	}
	return echoes, nil
}

// parseControlEchoes accepts both echo shapes the vendor emits: a single
// capability object or an array of them.
func parseControlEchoes(raw json.RawMessage) ([]model.Capability, error) {
	var single struct {
		Capability *echoedCapability `json:"capability"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.Capability != nil {
		return []model.Capability{single.Capability.toCapability()}, nil
	}

	var multi struct {
		Capability []echoedCapability `json:"capability"`
	}
	if err := json.Unmarshal(raw, &multi); err != nil {
		return nil, fmt.Errorf("decode control echo: %w", err)
	}
	echoes := make([]model.Capability, 0, len(multi.Capability))
	for _, e := range multi.Capability {
		echoes = append(echoes, e.toCapability())
	}
	return echoes, nil
}

type echoedCapability struct {
	Type     model.CapabilityType `json:"type"`
	Instance string               `json:"instance"`
	Value    any                  `json:"value"`
}

func (e echoedCapability) toCapability() model.Capability {
	return model.EchoCapability(e.Type, e.Instance, e.Value)
}

// Scenes fetches the dynamic scene capabilities available for a SKU.
func (c *Client) Scenes(ctx context.Context, sku, device string) ([]model.Capability, error) {
	data, err := c.Get(ctx, fmt.Sprintf("device/scenes?sku=%s&device=%s", sku, device))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Capabilities []model.Capability `json:"capabilities"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode scenes for %s: %w", device, err)
	}
	return resp.Capabilities, nil
}

// SubscribeEvents registers the account for push events from one device.
func (c *Client) SubscribeEvents(ctx context.Context, sku, device string) error {
	payload := map[string]any{
		"payload": map[string]any{
			"device": device,
			"sku":    sku,
		},
	}
	if _, err := c.Post(ctx, "device/event/subscribe", payload); err != nil {
		return err
	}
	log.Debug().Str("device", device).Msg("Subscribed to device events")
	return nil
}
