package wrap

import (
	"context"
)

// Error attaches the current LogCtx to err so the caller that finally logs it
// can recover the action and ids where the failure happened.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	c := LogCtx{}
	if x, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		c = x
	}

	// Already carrying a context: refresh it in place so the chain stays flat.
	if e, ok := err.(*errorWithLogCtx); ok {
		e.logCtx = mergeLogCtx(e.logCtx, c)
		return e
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: c,
	}
}
