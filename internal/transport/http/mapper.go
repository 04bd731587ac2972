package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

// ErrCodeRateLimited is sent when a socket exceeds its inbound event budget.
const ErrCodeRateLimited = "rate_limited"

// handleInbound answers one client request. Queries are served straight
// from the shared store and the directory; they never touch the hub.
func (h *WSHandler) handleInbound(ctx context.Context, in proto.Inbound, logger zerolog.Logger) *core.Event {
	switch in.Event {
	case proto.EventUsersList:
		ids, err := h.query.ListOnline(ctx)
		if err != nil {
			h.metrics.StoreError("list")
			logger.Warn().Err(err).Msg("users.list failed")
			return core.ErrorEvent(core.ErrCodeUnavailable, "online list unavailable")
		}
		return &core.Event{Name: core.EventUsersList, Data: identitiesToProto(ids)}

	case proto.EventUsersInfo:
		var email string
		if err := json.Unmarshal(in.Data, &email); err != nil || email == "" {
			return core.ErrorEvent(core.ErrCodeBadRequest, "email is required")
		}
		id, err := h.query.Info(ctx, email)
		if errors.Is(err, core.ErrNotFound) {
			return &core.Event{Name: core.EventUsersInfo}
		}
		if err != nil {
			logger.Error().Err(err).Str("lookup", email).Msg("users.info failed")
			return core.ErrorEvent(core.ErrCodeUnavailable, "user directory unavailable")
		}
		return &core.Event{Name: core.EventUsersInfo, Data: identityToProto(*id)}

	default:
		return core.ErrorEvent(core.ErrCodeUnknownEvent, "unknown event")
	}
}

func outboundFromEvent(ev *core.Event) proto.Outbound {
	out := proto.Outbound{
		Event: ev.Name,
		Data:  ev.Data,
	}
	if ev.Error != nil {
		out.Error = &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message}
	}
	return out
}

func identityToProto(id auth.Identity) proto.Identity {
	return proto.Identity{
		Firstname: id.Firstname,
		Lastname:  id.Lastname,
		Email:     id.Email,
	}
}

func identitiesToProto(ids []auth.Identity) []proto.Identity {
	out := make([]proto.Identity, 0, len(ids))
	for _, id := range ids {
		out = append(out, identityToProto(id))
	}
	return out
}
