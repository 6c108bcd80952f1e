package persister

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	"github.com/swimmingwebdev/simpletracker/internal/eventlog"
	"github.com/swimmingwebdev/simpletracker/internal/store"
	"github.com/swimmingwebdev/simpletracker/pkg/log"
)

// FeedOpener resolves the feed partition for a fresh subscription. It is
// re-invoked after every broken consume pass so a feed that was missing at
// startup is picked up once it exists.
type FeedOpener func() (*eventlog.Log, error)

// Config tunes the consume loop.
type Config struct {
	// Group names the durable cursor this consumer advances.
	Group string
	// RetryBackoff is the pause before rebuilding a broken subscription.
	RetryBackoff time.Duration
	// TopicBackoff is the longer pause when the feed cannot be opened.
	TopicBackoff time.Duration
	// BatchSize bounds how many entries one read pass pulls.
	BatchSize int
	// IdleTimeout bounds the blocking wait at end of feed.
	IdleTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Group == "" {
		c.Group = "event_group"
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	if c.TopicBackoff <= 0 {
		c.TopicBackoff = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = time.Second
	}
}

// Persister is the durable feed-to-store consumer.
type Persister struct {
	openFeed FeedOpener
	store    store.Store
	logger   log.Logger
	cfg      Config

	processed atomic.Uint64
	skipped   atomic.Uint64
}

// New builds a Persister over the given feed source and store.
func New(openFeed FeedOpener, st store.Store, logger log.Logger, cfg Config) *Persister {
	cfg.applyDefaults()
	return &Persister{
		openFeed: openFeed,
		store:    st,
		logger:   logger.With(log.Component("persister")),
		cfg:      cfg,
	}
}

// Processed reports how many entries have been stored and committed.
func (p *Persister) Processed() uint64 { return p.processed.Load() }

// Skipped reports how many malformed entries were committed past.
func (p *Persister) Skipped() uint64 { return p.skipped.Load() }

// Run supervises the consume loop until ctx is cancelled. A store-write
// failure tears the subscription down and rebuilds it after RetryBackoff;
// an unopenable feed waits TopicBackoff. Nothing else exits the loop.
func (p *Persister) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.logger.Info("connecting to feed", log.Str("group", p.cfg.Group))

		feed, err := p.openFeed()
		if err != nil {
			p.logger.Warn("feed unavailable", log.Err(err), log.Dur("backoff", p.cfg.TopicBackoff))
			if !sleepCtx(ctx, p.cfg.TopicBackoff) {
				return ctx.Err()
			}
			continue
		}

		err = p.consume(ctx, feed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("subscription broken, rebuilding",
			log.Err(err), log.Dur("backoff", p.cfg.RetryBackoff))
		if !sleepCtx(ctx, p.cfg.RetryBackoff) {
			return ctx.Err()
		}
	}
}

// consume reads from the group cursor forward until ctx is cancelled or a
// store write fails.
func (p *Persister) consume(ctx context.Context, feed *eventlog.Log) error {
	var next uint64
	if tok, ok := feed.GetCursor(p.cfg.Group); ok {
		next = tok.Seq() + 1
	}
	p.logger.Info("subscribed",
		log.Str("topic", feed.Topic()),
		log.Str("group", p.cfg.Group),
		log.Uint64("resume_seq", next))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		items := feed.Read(eventlog.ReadOptions{
			Start: eventlog.TokenFromSeq(next),
			Limit: p.cfg.BatchSize,
		})
		if len(items) == 0 {
			feed.WaitForAppend(p.cfg.IdleTimeout)
			continue
		}
		for _, it := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.handle(ctx, feed, it); err != nil {
				return err
			}
			next = it.Seq + 1
		}
	}
}

// handle stores one entry then commits its cursor. Malformed payloads are
// logged and committed past without a store write.
func (p *Persister) handle(ctx context.Context, feed *eventlog.Log, it eventlog.Item) error {
	ev, err := event.DecodeEnvelope(it.Payload)
	if err != nil {
		p.logger.Warn("skipping malformed entry", log.Uint64("seq", it.Seq), log.Err(err))
		p.skipped.Add(1)
		return p.commit(feed, it.Seq)
	}

	if err := p.insert(ctx, ev); err != nil {
		return fmt.Errorf("store %s seq %d: %w", ev.Kind(), it.Seq, err)
	}
	if err := p.commit(feed, it.Seq); err != nil {
		return err
	}
	p.processed.Add(1)
	p.logger.Debug("stored entry",
		log.Uint64("seq", it.Seq),
		log.Str("type", ev.Kind().String()),
		log.Uint64("trace_id", ev.Common().TraceID))
	return nil
}

func (p *Persister) insert(ctx context.Context, ev event.Event) error {
	switch v := ev.(type) {
	case event.Location:
		return p.store.InsertLocation(ctx, v)
	case event.Alert:
		return p.store.InsertAlert(ctx, v)
	default:
		return fmt.Errorf("unhandled event kind %d", ev.Kind())
	}
}

func (p *Persister) commit(feed *eventlog.Log, seq uint64) error {
	if err := feed.CommitCursor(p.cfg.Group, eventlog.TokenFromSeq(seq)); err != nil {
		return fmt.Errorf("commit cursor at %d: %w", seq, err)
	}
	return nil
}

// sleepCtx waits for d or for cancellation; it reports false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
