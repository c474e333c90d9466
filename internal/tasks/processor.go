package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"photogallery/internal/events"
	"photogallery/internal/models"
	"photogallery/internal/storage"
)

type TempSweeper interface {
	SweepTemp(now time.Time, maxAge time.Duration) (int, error)
}

// RemoteOpener returns a client for the named remote storage driver.
type RemoteOpener func(driver string) (storage.Store, error)

type Options struct {
	CleanupAge  time.Duration
	PurgeRemote bool
}

// Processor executes gallery events read from the stream.
type Processor struct {
	local  TempSweeper
	remote RemoteOpener
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	stores map[string]storage.Store
}

func NewProcessor(local TempSweeper, remote RemoteOpener, opts Options, logger zerolog.Logger) *Processor {
	return &Processor{
		local:  local,
		remote: remote,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		stores: make(map[string]storage.Store),
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := events.FromValues(msg.Values)
	if err != nil {
		// Malformed entries can never succeed; ack them.
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed event")
		return nil
	}

	switch event.Type {
	case events.TypeCleanup:
		return p.handleCleanup(ctx)
	case events.TypePhotoDeleted:
		return p.handleDeleted(ctx, event)
	case events.TypePhotoUploaded:
		p.logger.Debug().Str("photo_id", event.PhotoID).Msg("photo uploaded")
		return nil
	default:
		p.logger.Warn().Str("type", string(event.Type)).Msg("unknown event type")
		return nil
	}
}

func (p *Processor) handleCleanup(_ context.Context) error {
	if p.local == nil {
		p.logger.Debug().Msg("no local storage, cleanup skipped")
		return nil
	}
	removed, err := p.local.SweepTemp(p.now(), p.opts.CleanupAge)
	if err != nil {
		return fmt.Errorf("sweep temp files: %w", err)
	}
	p.logger.Info().Int("removed", removed).Dur("max_age", p.opts.CleanupAge).Msg("temp upload files swept")
	return nil
}

func (p *Processor) handleDeleted(ctx context.Context, event events.Event) error {
	logger := p.logger.With().Str("photo_id", event.PhotoID).Str("driver", event.Driver).Str("key", event.Key).Logger()

	if event.Driver == models.StorageLocal {
		// The API removes local files itself.
		return nil
	}
	if !p.opts.PurgeRemote {
		logger.Debug().Msg("remote purge disabled, object kept")
		return nil
	}
	if event.Key == "" {
		logger.Warn().Msg("delete event without key")
		return nil
	}

	store, err := p.store(event.Driver)
	if err != nil {
		logger.Error().Err(err).Msg("remote store unavailable, object kept")
		return nil
	}
	if err := store.Remove(ctx, event.Key); err != nil {
		if errors.Is(err, storage.ErrUpstream) {
			return fmt.Errorf("purge %s object %s: %w", event.Driver, event.Key, err)
		}
		logger.Error().Err(err).Msg("purge failed")
		return nil
	}
	logger.Info().Msg("remote object purged")
	return nil
}

func (p *Processor) store(driver string) (storage.Store, error) {
	if s, ok := p.stores[driver]; ok {
		return s, nil
	}
	if p.remote == nil {
		return nil, fmt.Errorf("no remote opener for %q", driver)
	}
	s, err := p.remote(driver)
	if err != nil {
		return nil, err
	}
	p.stores[driver] = s
	return s, nil
}
