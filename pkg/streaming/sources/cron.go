package sources

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	oserrors "github.com/vnykmshr/objstream/pkg/common/errors"
	"github.com/vnykmshr/objstream/pkg/common/validation"
	"github.com/vnykmshr/objstream/pkg/streaming/duplex"
)

// GenerateFunc produces the item for one schedule tick.
type GenerateFunc[T any] func(ctx context.Context, tick time.Time) (T, error)

// CronConfig configures a Cron source.
type CronConfig struct {
	// Spec is a cron expression with an optional leading seconds field, or a
	// descriptor such as "@every 1m". Ignored when Schedule is set.
	Spec string

	// Schedule overrides Spec with a prebuilt schedule.
	Schedule cron.Schedule

	// Location is the time zone Spec is evaluated in (defaults to time.Local).
	Location *time.Location

	// MaxItems ends the destination after that many items (0 = unlimited).
	MaxItems int

	// Logger receives scheduler events. Nil disables logging.
	Logger *zerolog.Logger
}

// Cron writes one generated item into a Writable on every schedule tick.
// Ticks that arrive while the previous item is still being written are
// skipped, as are ticks whose generate or write fails with a temporary error
// (a full destination or a timeout). Any other error stops the source.
type Cron[T any] struct {
	config   CronConfig
	cron     *cron.Cron
	dst      duplex.Writable[T]
	generate GenerateFunc[T]
	log      zerolog.Logger

	mu       sync.Mutex
	ctx      context.Context
	count    int
	skipped  int
	finished bool
	err      error
	done     chan struct{}
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewCron validates config and prepares a source. Nothing is written until
// Start is called.
func NewCron[T any](config CronConfig, dst duplex.Writable[T], generate GenerateFunc[T]) (*Cron[T], error) {
	if dst == nil {
		return nil, oserrors.NewValidationError("sources", "destination", nil, "must not be nil")
	}
	if generate == nil {
		return nil, oserrors.NewValidationError("sources", "generate", nil, "must not be nil")
	}
	if err := validation.ValidateNonNegative("sources", "max_items", config.MaxItems); err != nil {
		return nil, err
	}

	schedule := config.Schedule
	if schedule == nil {
		if err := validation.ValidateNotEmpty("sources", "spec", config.Spec); err != nil {
			return nil, err
		}
		parsed, err := cronParser.Parse(config.Spec)
		if err != nil {
			return nil, oserrors.NewValidationError("sources", "spec", config.Spec, err.Error()).
				WithHint("use a 5 or 6 field expression or a descriptor like @every 1m")
		}
		schedule = parsed
	}

	if config.Location == nil {
		config.Location = time.Local
	}

	log := zerolog.Nop()
	if config.Logger != nil {
		log = config.Logger.With().Str("component", "cron_source").Logger()
	}
	cl := cronLogger{log: log}

	s := &Cron[T]{
		config:   config,
		dst:      dst,
		generate: generate,
		log:      log,
		done:     make(chan struct{}),
	}
	s.cron = cron.New(
		cron.WithLocation(config.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.cron.Schedule(schedule, cron.FuncJob(s.tick))
	return s, nil
}

// Start begins scheduling. ctx bounds every generate and write call;
// cancelling it stops the source and destroys the destination.
func (s *Cron[T]) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	context.AfterFunc(ctx, func() {
		s.finish(context.Cause(ctx))
	})
}

// Stop halts scheduling, waits for an in-flight tick and ends the
// destination.
func (s *Cron[T]) Stop() {
	<-s.cron.Stop().Done()
	s.finish(nil)
}

// Done is closed once the source has ended or failed.
func (s *Cron[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that stopped the source, if any.
func (s *Cron[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Count returns the number of items written.
func (s *Cron[T]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Skipped returns the number of ticks dropped after a temporary error.
func (s *Cron[T]) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

func (s *Cron[T]) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}

	now := time.Now().In(s.config.Location)
	item, err := s.generate(s.ctx, now)
	if err == nil {
		err = s.dst.Write(s.ctx, item)
	}
	if err != nil && oserrors.IsTemporary(err) && s.ctx.Err() == nil {
		s.skipped++
		s.log.Warn().Err(err).Int("skipped", s.skipped).Msg("tick skipped")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("tick failed")
		s.finishLocked(err)
		return
	}

	s.count++
	s.log.Debug().Int("count", s.count).Time("tick", now).Msg("item written")
	if s.config.MaxItems > 0 && s.count >= s.config.MaxItems {
		s.finishLocked(nil)
	}
}

func (s *Cron[T]) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(err)
}

// finishLocked stops the scheduler without waiting, since it may run inside
// a tick.
func (s *Cron[T]) finishLocked(err error) {
	if s.finished {
		return
	}
	s.finished = true
	s.err = err
	s.cron.Stop()

	if err != nil {
		if d, ok := s.dst.(duplex.Destroyer); ok {
			d.Destroy(err)
		}
	} else if endErr := s.dst.End(); endErr != nil {
		s.err = endErr
	}
	s.log.Debug().Int("count", s.count).Err(s.err).Msg("cron source stopped")
	close(s.done)
}

// cronLogger routes robfig/cron events to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
