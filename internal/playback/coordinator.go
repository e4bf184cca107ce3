package playback

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/tutorloop/voice-service/internal/observability"
)

// slot is the single process-wide playback resource. Invariant: if an item
// id is set, the output handle is live and unreleased; releasing the handle
// and clearing the id happen in the same transition under the coordinator
// lock.
type slot struct {
	item   Item
	gen    uint64
	out    Output
	paused bool
}

// Coordinator owns at most one active audio output stream across
// arbitrarily many playable items. Play executes its whole stop-previous /
// start-next sequence before returning, so two rapid Play calls can never
// both end up with a live handle. Each Play that opens a handle gets a new
// generation token; callbacks from a superseded stream carry an old token
// and are ignored.
//
// Stop policy: the self-toggle pauses and retains position, so a later Play
// on the same item resumes. Switching to a different item stops the old one
// fully (rewind and release); playing it again starts from the beginning.
type Coordinator struct {
	opener Opener
	logger zerolog.Logger

	mu   sync.Mutex
	gen  uint64
	slot *slot
}

// NewCoordinator creates a playback coordinator
func NewCoordinator(opener Opener, logger zerolog.Logger) *Coordinator {
	return &Coordinator{opener: opener, logger: logger}
}

// Play starts, toggles, or switches playback. Failures to open or start a
// stream are absorbed: the slot is left clear and the UI observes no active
// item. See the coordinator doc for the ordering guarantees.
func (c *Coordinator) Play(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Same item: play/pause toggle, not a restart
	if c.slot != nil && c.slot.item.ID == item.ID {
		if !c.slot.paused {
			if err := c.slot.out.Pause(); err != nil {
				c.logger.Warn().Err(err).Str("item_id", item.ID).Msg("Pause failed")
			}
			c.slot.paused = true
			observability.RecordPlaybackStop()
			return
		}

		if err := c.slot.out.Play(); err != nil {
			c.logger.Warn().Err(err).Str("item_id", item.ID).Msg("Resume failed")
			c.releaseLocked()
			return
		}
		c.slot.paused = false
		observability.RecordPlaybackStart()
		return
	}

	// Different item active (playing or paused): stop it before anything
	// else so only one stream is ever live.
	if c.slot != nil {
		if err := c.slot.out.Stop(); err != nil {
			c.logger.Warn().Err(err).Str("item_id", c.slot.item.ID).Msg("Stop of previous item failed")
		}
		c.releaseLocked()
	}

	c.gen++
	gen := c.gen

	out, err := c.opener.Open(item, Events{
		OnEnded:   func() { c.onEnded(gen) },
		OnError:   func(err error) { c.onError(gen, err) },
		OnPaused:  func() { c.onPaused(gen) },
		OnResumed: func() { c.onResumed(gen) },
	})
	if err != nil {
		c.logger.Error().Err(err).Str("item_id", item.ID).Str("locator", item.Locator).Msg("Failed to open output stream")
		observability.RecordPlaybackError()
		return
	}

	c.slot = &slot{item: item, gen: gen, out: out}

	if err := out.Play(); err != nil {
		c.logger.Error().Err(err).Str("item_id", item.ID).Msg("Failed to start playback")
		observability.RecordPlaybackError()
		c.releaseLocked()
		return
	}

	observability.RecordPlaybackStart()
	c.logger.Debug().Str("item_id", item.ID).Msg("Playback started")
}

// releaseLocked frees the active handle and clears the item in one
// transition. Caller holds c.mu.
func (c *Coordinator) releaseLocked() {
	if c.slot == nil {
		return
	}
	c.slot.out.Release()
	c.slot = nil
	observability.RecordPlaybackStop()
}

func (c *Coordinator) onEnded(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil || c.slot.gen != gen {
		return // stale callback from a superseded stream
	}

	c.logger.Debug().Str("item_id", c.slot.item.ID).Msg("Playback completed")
	c.releaseLocked()
}

func (c *Coordinator) onError(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil || c.slot.gen != gen {
		return
	}

	// Absorbed: the caller of Play never sees this, only the cleared state
	c.logger.Warn().Err(err).Str("item_id", c.slot.item.ID).Msg("Playback stream failed")
	observability.RecordPlaybackError()
	c.releaseLocked()
}

func (c *Coordinator) onPaused(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil || c.slot.gen != gen || c.slot.paused {
		return
	}

	// Handle retained so a later Play on the same item resumes
	c.slot.paused = true
	observability.RecordPlaybackStop()
}

func (c *Coordinator) onResumed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil || c.slot.gen != gen || !c.slot.paused {
		return
	}

	c.slot.paused = false
	observability.RecordPlaybackStart()
}

// IsPlaying reports whether the given item is the one currently playing.
// Paused items report false.
func (c *Coordinator) IsPlaying(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot != nil && c.slot.item.ID == itemID && !c.slot.paused
}

// ActiveItem returns the id of the item currently playing, if any
func (c *Coordinator) ActiveItem() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot == nil || c.slot.paused {
		return "", false
	}
	return c.slot.item.ID, true
}

// Shutdown stops and releases any active stream
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot != nil {
		if err := c.slot.out.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("Stop during shutdown failed")
		}
		c.releaseLocked()
	}
}
