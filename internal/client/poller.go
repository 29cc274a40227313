package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mockexam-registration/internal/status"
	"mockexam-registration/pkg/logger"

	"go.uber.org/zap"
)

// Poller re-invokes a StatusClient fetch on a fixed interval and pushes results to
// onUpdate. A tick is skipped while the previous fetch (including its retries) is
// still in flight; Refetch bypasses that check exactly once. After Stop no further
// fetch is scheduled and in-flight results are discarded rather than applied.
type Poller struct {
	client   *StatusClient
	interval time.Duration
	onUpdate func(*status.AvailabilityStatus)

	ctx      context.Context
	cancel   context.CancelFunc
	busy     atomic.Bool
	refetch  chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
}

func NewPoller(client *StatusClient, interval time.Duration, onUpdate func(*status.AvailabilityStatus)) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		client:   client,
		interval: interval,
		onUpdate: onUpdate,
		ctx:      ctx,
		cancel:   cancel,
		refetch:  make(chan struct{}, 1),
	}
}

func (p *Poller) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	p.wg.Add(1)
	go p.run()
}

// Refetch triggers an immediate fetch, bypassing skip-if-busy once.
func (p *Poller) Refetch() {
	select {
	case p.refetch <- struct{}{}:
	default:
		// 已經有一次手動請求在排隊
	}
}

// Stop cancels the polling loop and waits for any in-flight fetch to wind down.
func (p *Poller) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// initial fetch so the UI is not empty for a whole interval
	p.dispatch(true)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.refetch:
			p.dispatch(true)
		case <-ticker.C:
			p.dispatch(false)
		}
	}
}

// dispatch launches one fetch; when force is false the tick is dropped if the
// previous fetch has not completed, so in-flight requests stay bounded.
func (p *Poller) dispatch(force bool) {
	if !force && !p.busy.CompareAndSwap(false, true) {
		logger.WithComponent("poller").Debug("tick skipped, fetch still in flight")
		return
	}
	if force {
		p.busy.Store(true)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.busy.Store(false)

		st, err := p.client.Get(p.ctx)
		if err != nil {
			logger.WithComponent("poller").Warn("status fetch failed", zap.Error(err))
			return
		}

		// discard results that land after teardown
		if p.ctx.Err() != nil {
			return
		}
		if p.onUpdate != nil {
			p.onUpdate(st)
		}
	}()
}
