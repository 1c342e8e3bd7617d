package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/auditportal/auditportal/internal/constants"
	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/logging"
)

// Poller refreshes a conversation on a fixed interval until stopped.
type Poller struct {
	conv     *Conversation
	interval time.Duration
	eventBus *events.EventBus
	logger   *logging.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	cancel   context.CancelFunc
	onUpdate func(added int)
}

// NewPoller creates a stopped poller. Intervals below the minimum are
// raised to it.
func NewPoller(conv *Conversation, interval time.Duration, eventBus *events.EventBus, logger *logging.Logger) *Poller {
	if interval < constants.MinChatPollInterval {
		interval = constants.MinChatPollInterval
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Poller{
		conv:     conv,
		interval: interval,
		eventBus: eventBus,
		logger:   logger.Named("chat-poller"),
	}
}

// OnUpdate registers a callback run after each poll that found new messages.
func (p *Poller) OnUpdate(fn func(added int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// Start schedules polling. Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return nil
	}

	pollCtx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger{p.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{p.logger})),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", p.interval), func() { p.poll(pollCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule chat polling: %w", err)
	}
	c.Start()
	p.cron = c
	p.cancel = cancel
	p.logger.Debug().Dur("interval", p.interval).Str("conversation", p.conv.ID()).Msg("polling started")
	return nil
}

// Stop cancels polling and waits for a running poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	c, cancel := p.cron, p.cancel
	p.cron, p.cancel = nil, nil
	p.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	p.logger.Debug().Msg("polling stopped")
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cron != nil
}

func (p *Poller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, p.interval*2)
	defer cancel()

	added, err := p.conv.Refresh(reqCtx)
	if err != nil {
		return
	}
	if added == 0 {
		return
	}
	p.eventBus.PublishChat(p.conv.ID(), added, len(p.conv.Messages()))

	p.mu.Lock()
	fn := p.onUpdate
	p.mu.Unlock()
	if fn != nil {
		fn(added)
	}
}

// cronLogger routes cron's own logging to the chat logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
