package ipc

import (
	"context"
	"encoding/json"

	"github.com/adamancini/glint/internal/coordinator"
	"github.com/adamancini/glint/internal/types"
	"github.com/adamancini/glint/internal/uistate"
)

// RegisterUpdateHandlers wires the update channels to the coordinator
func RegisterUpdateHandlers(r *Router, c *coordinator.Coordinator) {
	r.Handle(types.ChannelCheckForUpdates, func(ctx context.Context, _ []json.RawMessage) (interface{}, error) {
		return c.CheckForUpdates(ctx), nil
	})
	r.Handle(types.ChannelDownloadAndInstall, func(ctx context.Context, _ []json.RawMessage) (interface{}, error) {
		return c.DownloadAndInstall(ctx), nil
	})
	r.Handle(types.ChannelGetAppVersion, func(context.Context, []json.RawMessage) (interface{}, error) {
		return c.GetAppVersion(), nil
	})
	r.Handle(types.ChannelQuitAndInstall, func(context.Context, []json.RawMessage) (interface{}, error) {
		c.QuitAndInstall()
		return nil, nil
	})
}

// RegisterUIStateHandlers wires the glow color channels to the store
func RegisterUIStateHandlers(r *Router, s *uistate.Store) {
	r.Handle(types.ChannelGetGlowColor, func(context.Context, []json.RawMessage) (interface{}, error) {
		return s.Snapshot(), nil
	})
	r.Handle(types.ChannelSetGlowColor, func(_ context.Context, args []json.RawMessage) (interface{}, error) {
		color, err := stringArg(types.ChannelSetGlowColor, args, 0)
		if err != nil {
			return nil, err
		}
		s.SetColor(color)
		return s.Snapshot(), nil
	})
	r.Handle(types.ChannelResetGlowColor, func(context.Context, []json.RawMessage) (interface{}, error) {
		s.ResetColor()
		return s.Snapshot(), nil
	})
}
