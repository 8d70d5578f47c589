package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action    string
		UserID    string
		RequestID string
		RideID    string
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the context key for LogCtx values.
var LogCtxKey = &logCtxKeyStruct{}

// WithLogCtx stores newLc in ctx. Empty fields keep the values already present.
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		return context.WithValue(ctx, LogCtxKey, mergeLogCtx(lc, newLc))
	}
	return context.WithValue(ctx, LogCtxKey, newLc)
}

func mergeLogCtx(base, top LogCtx) LogCtx {
	if top.Action == "" {
		top.Action = base.Action
	}
	if top.UserID == "" {
		top.UserID = base.UserID
	}
	if top.RequestID == "" {
		top.RequestID = base.RequestID
	}
	if top.RideID == "" {
		top.RideID = base.RideID
	}
	return top
}

func update(ctx context.Context, fn func(*LogCtx)) context.Context {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	fn(&lc)
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithUserID adds or updates the UserID in the LogCtx within the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.UserID = userID })
}

// WithRequestID adds or updates the RequestID in the LogCtx within the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RequestID = requestID })
}

// WithRideID adds or updates the RideID in the LogCtx within the context
func WithRideID(ctx context.Context, rideID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RideID = rideID })
}

// WithAction adds or updates the Action in the LogCtx within the context
func WithAction(ctx context.Context, action string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.Action = action })
}

// GetRequestID returns the request id stored in ctx, used as the correlation id of outgoing events.
func GetRequestID(ctx context.Context) string {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	return lc.RequestID
}
