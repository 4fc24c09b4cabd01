// Package loop runs the overlay's single owner event loop. It applies overlay
// events and metadata results to the state containers, prunes on every tick,
// persists the aggregate after each transition, and publishes frames for
// presentation.
package loop

import (
	"context"
	"log/slog"
	"time"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/bestiary"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/dynamis"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/logging"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/overlay"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/store"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tome"
)

// DefaultTick is the recompute interval used when Loop.Tick is zero.
const DefaultTick = 250 * time.Millisecond

// Saver persists the aggregate state. *store.Persister satisfies it.
type Saver interface {
	Save(ctx context.Context, s store.State) error
}

// Loop owns the aggregate state. None of its containers may be touched by
// another goroutine while Run is executing.
type Loop struct {
	Events   <-chan overlay.Event
	Tome     *tome.Cache
	Book     *spellbook.Book
	Bestiary *bestiary.Bestiary
	World    *dynamis.World
	Store    Saver // nil disables persistence
	Version  string
	Tick     time.Duration
	Frames   chan<- Frame // optional; sends never block
	Logger   *slog.Logger

	// OnFrame, when set, receives every frame synchronously on the loop
	// goroutine. Unlike Frames it never drops.
	OnFrame func(Frame)
	// Clock, when set, is advanced to each event's timestamp before the
	// event is applied, and ready entries are pruned whenever it moves.
	Clock *EventClock
	// Settle makes Run wait for in-flight metadata fetches and apply their
	// results once the event source ends.
	Settle bool

	dispatcher *overlay.Dispatcher
	logger     *slog.Logger
	tomeRev    uint64
	savedRev   uint64
}

// Restore loads persisted state into the containers and seeds the metadata
// cache. A blob written by another version is still loaded; the next save
// overwrites it with the running version.
func (l *Loop) Restore(s store.State) {
	log := l.log()
	if s.Version != "" && s.Version != l.Version {
		log.Info("persisted state from another version, overwriting on next save",
			slog.String("persisted", s.Version), slog.String("running", l.Version))
	}
	l.Book.Restore(s.Spellbook)
	l.Bestiary.Restore(s.Bestiary)
	l.World.Restore(s.Dynamis)
	if l.Tome != nil {
		l.Tome.Seed(s.Tome)
	}
	log.Info("state restored",
		slog.Int("resting", len(s.Spellbook.Resting)),
		slog.Int("tome", len(s.Tome)),
		slog.Int("bestiary", len(s.Bestiary)))
}

// Snapshot returns the aggregate state as it would be persisted.
func (l *Loop) Snapshot() store.State {
	s := store.State{
		Version:   l.Version,
		Spellbook: l.Book.Snapshot(),
		Bestiary:  l.Bestiary.Snapshot(),
		Dynamis:   l.World.State(),
	}
	if l.Tome != nil {
		s.Tome = l.Tome.Snapshot()
	}
	return s
}

// Rev is the aggregate revision. It changes whenever any container applies a
// command.
func (l *Loop) Rev() uint64 {
	return l.Book.Rev() + l.Bestiary.Rev() + l.World.Rev() + l.tomeRev
}

// Run processes events until ctx is cancelled or the event channel closes.
// It returns ctx.Err() on cancellation and nil when the source ends.
func (l *Loop) Run(ctx context.Context) error {
	l.setup(ctx)

	tick := l.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var results <-chan tome.Result
	if l.Tome != nil {
		results = l.Tome.Results()
	}

	l.persist(ctx)
	l.publish()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("loop stopped", logging.Error(ctx.Err()))
			l.persist(context.WithoutCancel(ctx))
			return ctx.Err()

		case ev, ok := <-l.Events:
			if !ok {
				l.logger.Info("event source closed")
				if l.Settle {
					l.settle(ctx, results)
				}
				l.persist(ctx)
				l.publish()
				return nil
			}
			if l.Clock != nil && l.Clock.Advance(ev.Timestamp) {
				l.prune()
			}
			if !l.dispatcher.Dispatch(ev) {
				l.logger.Debug("no handler", slog.String(logging.FieldEvent, string(ev.Type)))
			}

		case res := <-results:
			l.apply(res)

		case <-ticker.C:
			l.prune()
		}

		l.persist(ctx)
		l.publish()
	}
}

func (l *Loop) prune() {
	if n := l.Book.Tracker().Prune(); n > 0 {
		l.logger.Debug("pruned ready abilities", slog.Int("count", n))
	}
}

// settle drains metadata results until every started fetch has reported.
func (l *Loop) settle(ctx context.Context, results <-chan tome.Result) {
	if l.Tome == nil {
		return
	}
	idle := make(chan struct{})
	go func() {
		l.Tome.Wait()
		close(idle)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case res := <-results:
			l.apply(res)
			l.publish()
		case <-idle:
			for {
				select {
				case res := <-results:
					l.apply(res)
					l.publish()
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) setup(ctx context.Context) {
	l.logger = l.log()
	l.dispatcher = overlay.NewDispatcher()

	spellbook.NewIngest(l.Book, l.metadata(), l.Logger).Register(ctx, l.dispatcher)
	l.Bestiary.Register(l.dispatcher)
	l.World.Register(l.dispatcher)

	l.savedRev = 0
}

func (l *Loop) log() *slog.Logger {
	return logging.NewComponentLogger(l.Logger, "loop")
}

func (l *Loop) metadata() spellbook.Metadata {
	if l.Tome == nil {
		return noMetadata{}
	}
	return l.Tome
}

// apply folds a finished metadata fetch into the resting set. Failed fetches
// leave the placeholder in place.
func (l *Loop) apply(res tome.Result) {
	if res.Err != nil {
		return
	}
	l.tomeRev++
	if l.Book.Tracker().Resolve(res.ID, res.Action) {
		l.logger.Debug("resting ability resolved",
			slog.String(logging.FieldAbility, res.ID), slog.String("name", res.Action.Name))
	}
}

func (l *Loop) persist(ctx context.Context) {
	if l.Store == nil {
		return
	}
	rev := l.Rev()
	if rev == l.savedRev {
		return
	}
	l.savedRev = rev
	if err := l.Store.Save(ctx, l.Snapshot()); err != nil {
		l.logger.Warn("persist state failed", logging.Error(err))
	}
}

// Frame builds the current render snapshot.
func (l *Loop) Frame() Frame {
	tracker := l.Book.Tracker()
	visible := tracker.Displayable()
	return Frame{
		At:        tracker.Now(),
		Abilities: visible,
		Visible:   len(visible) > 0,
		Resting:   tracker.Len(),
		You:       l.Book.You(),
		Zone:      l.World.State().ZoneName,
		PartySize: len(l.Book.Party()),
	}
}

// publish hands the current frame to OnFrame and sends it on Frames
// without blocking.
func (l *Loop) publish() {
	if l.OnFrame == nil && l.Frames == nil {
		return
	}
	f := l.Frame()
	if l.OnFrame != nil {
		l.OnFrame(f)
	}
	if l.Frames == nil {
		return
	}
	select {
	case l.Frames <- f:
	default:
	}
}

type noMetadata struct{}

func (noMetadata) Lookup(string) (tome.Action, bool)   { return tome.Action{}, false }
func (noMetadata) Ensure(context.Context, string) bool { return false }
