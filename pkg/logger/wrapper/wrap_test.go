package wrap

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWithLogCtx_MergesFields(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithAction(ctx, "create_ride")
	ctx = WithLogCtx(ctx, LogCtx{RideID: "ride-1"})

	lc := ctx.Value(LogCtxKey).(LogCtx)
	if lc.RequestID != "req-1" || lc.Action != "create_ride" || lc.RideID != "ride-1" {
		t.Fatalf("unexpected log ctx: %+v", lc)
	}
}

func TestError_CarriesContext(t *testing.T) {
	base := errors.New("boom")
	ctx := WithAction(WithRideID(context.Background(), "ride-7"), "cancel_ride")

	err := Error(ctx, fmt.Errorf("cancel: %w", base))
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error must unwrap to the original")
	}

	got := ErrorCtx(context.Background(), err).Value(LogCtxKey).(LogCtx)
	if got.RideID != "ride-7" || got.Action != "cancel_ride" {
		t.Fatalf("unexpected log ctx from error: %+v", got)
	}
}

func TestError_RewrapDoesNotLoop(t *testing.T) {
	ctx := WithAction(context.Background(), "inner")
	err := Error(ctx, errors.New("x"))
	err = Error(WithAction(ctx, "outer"), err)

	if err.Error() != "x" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if got := ErrorCtx(context.Background(), err).Value(LogCtxKey).(LogCtx); got.Action != "outer" {
		t.Fatalf("action must be refreshed, got %q", got.Action)
	}
}

func TestError_Nil(t *testing.T) {
	if Error(context.Background(), nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}
