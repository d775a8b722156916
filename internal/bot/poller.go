package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/reportbot/internal/infra"
)

const retryDelay = 3 * time.Second

// Poller pulls updates and feeds them to the processor with bounded concurrency.
type Poller struct {
	src         UpdatesSource
	processor   *UpdateProcessor
	maxInFlight int
	config      api.UpdateConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewPoller(src UpdatesSource, processor *UpdateProcessor, maxInFlight int) *Poller {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	config := api.NewUpdate(0)
	config.Timeout = 10
	return &Poller{
		src:         src,
		processor:   processor,
		maxInFlight: maxInFlight,
		config:      config,
	}
}

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go func() {
		defer close(p.done)
		p.run(runCtx)
	}()
	return nil
}

// Stop cancels polling and waits for in-flight updates.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel()
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("poller stop: %w", ctx.Err())
	}
}

func (p *Poller) run(ctx context.Context) {
	for ctx.Err() == nil {
		err := p.consume(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		p.getLogEntry().WithError(err).Error("bot api get updates error")
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func (p *Poller) consume(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, errs := GetUpdatesChans(pollCtx, p.src, p.config, p.maxInFlight)
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(p.maxInFlight)

	for update := range updates {
		p.config.Offset = update.UpdateID + 1
		g.Go(func() error {
			err := infra.Recover(fmt.Sprintf("update_%d", update.UpdateID), func() error {
				return p.processor.Process(gctx, &update)
			})
			if err != nil {
				p.getLogEntry().WithError(err).WithField("update_id", update.UpdateID).Error("cant process update")
			}
			return nil
		})
	}
	_ = g.Wait()
	return <-errs
}

func (p *Poller) getLogEntry() *log.Entry {
	return log.WithField("object", "Poller")
}
