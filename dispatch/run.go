package dispatch

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/depthview/depthview/frame"
)

// IdleWait is how long Run sleeps after a tick that delivered no frame.
var IdleWait = 5 * time.Millisecond

// A TickFunc runs after every reader update on the dispatch goroutine. delivered reports whether a
// frame was handed to the listeners in this tick.
type TickFunc func(ctx context.Context, delivered bool) error

// Run drives reader until ctx is done or the source is exhausted, calling afterTick after each update.
// Cancellation and exhaustion end the loop without error; a tick that is running always completes.
func Run(ctx context.Context, reader *frame.Reader, afterTick TickFunc) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		delivered, err := reader.Update(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return nil
			}
			return err
		case err != nil:
			return errors.Wrap(err, "cannot update frame reader")
		}
		if afterTick != nil {
			if err := afterTick(ctx, delivered); err != nil {
				return err
			}
		}
		if !delivered && !goutils.SelectContextOrWait(ctx, IdleWait) {
			return nil
		}
	}
}
