package app

import (
	"context"
	"sync"
	"time"

	"github.com/samvad-hq/data-api-gateway/internal/gateway"
	"github.com/samvad-hq/data-api-gateway/internal/journal"
	"github.com/samvad-hq/data-api-gateway/internal/logger"
	"github.com/samvad-hq/data-api-gateway/pkg/notifiers"
)

func logObserver(log logger.Logger) gateway.Observer {
	return gateway.ObserverFunc(func(_ context.Context, inv gateway.Invocation) {
		meta := map[string]any{
			"tool":        inv.Tool,
			"duration_ms": inv.Duration.Milliseconds(),
		}
		if inv.OK() {
			log.DebugObj("tool call completed", "tool_call", meta)
			return
		}
		meta["upstream_status"] = inv.UpstreamStatus
		meta["error"] = inv.Error
		log.WarnObj("tool call failed", "tool_call", meta)
	})
}

func journalObserver(store journal.Store, log logger.Logger) gateway.Observer {
	return gateway.ObserverFunc(func(_ context.Context, inv gateway.Invocation) {
		err := store.Record(journal.Entry{
			Tool:           inv.Tool,
			Args:           inv.Args,
			StartedAt:      inv.StartedAt,
			DurationMS:     inv.Duration.Milliseconds(),
			UpstreamStatus: inv.UpstreamStatus,
			Error:          inv.Error,
		})
		if err != nil {
			log.ErrorObj("journal record failed", "journal_error", map[string]any{
				"tool":  inv.Tool,
				"error": err.Error(),
			})
		}
	})
}

// notifyTimeout bounds a single fanout so a stalled sink cannot pile up
// goroutines.
const notifyTimeout = 15 * time.Second

// notifyDispatcher fans each invocation out to the configured sinks off the
// call path. Delivery failures are logged and never affect the tool result.
type notifyDispatcher struct {
	fanout  *notifiers.Fanout
	log     logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func newNotifyDispatcher(fanout *notifiers.Fanout, log logger.Logger) *notifyDispatcher {
	return &notifyDispatcher{fanout: fanout, log: log, timeout: notifyTimeout}
}

func (d *notifyDispatcher) observer() gateway.Observer {
	return gateway.ObserverFunc(func(ctx context.Context, inv gateway.Invocation) {
		if d.fanout.Size() == 0 {
			return
		}
		evt := notifiers.NewEvent(inv.Tool, inv.Args, inv.Result, inv.Error)
		evt.UpstreamStatus = inv.UpstreamStatus
		evt.StartedAt = inv.StartedAt
		evt.DurationMS = inv.Duration.Milliseconds()

		// Detached from the caller: the tool reply must not wait on sinks.
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer cancel()
			if _, err := d.fanout.Notify(notifyCtx, evt); err != nil {
				d.log.ErrorObj("notify failed", "notify_error", map[string]any{
					"tool":  inv.Tool,
					"error": err.Error(),
				})
			}
		}()
	})
}

// wait blocks until in-flight deliveries finish or hit their deadline.
func (d *notifyDispatcher) wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
