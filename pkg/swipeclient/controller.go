package swipeclient

import (
	"context"
	"sync"
)

// State is the observable phase of a swipe session
type State string

const (
	StateLoading                 State = "loading"
	StateIdleWithQueue           State = "idle_with_queue"
	StateEmptyAwaitingGeneration State = "empty_awaiting_generation"
	StateEmptyNoImages           State = "empty_no_images"
)

type Direction int

const (
	Left Direction = iota
	Right
)

func (d Direction) String() string {
	if d == Right {
		return "right"
	}
	return "left"
}

// API is the subset of the server API the controller needs
type API interface {
	PendingImages(ctx context.Context) ([]Image, error)
	LikedImages(ctx context.Context) ([]Image, error)
	Stats(ctx context.Context) (*Stats, error)
	Generate(ctx context.Context) ([]Image, error)
	Swipe(ctx context.Context, id string, liked bool) (*Image, error)
}

// Controller keeps the local queue of unswiped images for one session.
// Swipes pop the head immediately and are sent to the server in the background.
// When the queue runs low a single generation batch is requested and the new
// pending images are appended, skipping anything already seen.
type Controller struct {
	api      API
	onChange func()

	mu             sync.Mutex
	queue          []Image
	seen           map[string]struct{}
	loading        bool
	generating     bool
	lastFetchEmpty bool
	liked          []Image
	stats          *Stats
	lastErr        error

	// refreshes run concurrently; only results newer than the applied ones are kept
	viewSeq      uint64
	likedApplied uint64
	statsApplied uint64

	wg sync.WaitGroup
}

// NewController creates a controller. onChange, if set, is called after every state change.
func NewController(api API, onChange func()) *Controller {
	return &Controller{
		api:      api,
		onChange: onChange,
		seen:     make(map[string]struct{}),
	}
}

// Start fetches the initial pending images and the liked/stats views
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	c.notify()

	c.spawn(func() {
		images, err := c.api.PendingImages(ctx)

		c.mu.Lock()
		c.loading = false
		if err != nil {
			c.lastErr = err
			c.lastFetchEmpty = true
		} else {
			c.ingestLocked(images)
		}
		trigger := c.claimReplenishLocked()
		c.mu.Unlock()
		c.notify()

		if trigger {
			c.runGeneration(ctx)
		}
	})

	c.spawn(func() { c.refreshViews(ctx) })
}

// Swipe pops the head of the queue and records the decision on the server.
// It returns false when the queue is empty.
func (c *Controller) Swipe(ctx context.Context, dir Direction) (Image, bool) {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return Image{}, false
	}
	head := c.queue[0]
	c.queue = c.queue[1:]
	trigger := c.claimReplenishLocked()
	c.mu.Unlock()
	c.notify()

	c.spawn(func() {
		if _, err := c.api.Swipe(ctx, head.ID, dir == Right); err != nil {
			c.setError(err)
			return
		}
		c.refreshViews(ctx)
	})

	if trigger {
		c.runGeneration(ctx)
	}
	return head, true
}

// Generate requests a batch manually. It returns false if one is already in flight.
func (c *Controller) Generate(ctx context.Context) bool {
	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return false
	}
	c.generating = true
	c.mu.Unlock()
	c.notify()

	c.runGeneration(ctx)
	return true
}

// Wait blocks until all background requests have finished
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.loading:
		return StateLoading
	case len(c.queue) > 0:
		return StateIdleWithQueue
	case c.generating:
		return StateEmptyAwaitingGeneration
	default:
		return StateEmptyNoImages
	}
}

func (c *Controller) Head() (Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return Image{}, false
	}
	return c.queue[0], true
}

func (c *Controller) Queue() []Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Image, len(c.queue))
	copy(out, c.queue)
	return out
}

func (c *Controller) IsGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}

// Stats returns the last fetched stats, or nil before the first fetch
func (c *Controller) Stats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stats == nil {
		return nil
	}
	s := *c.stats
	return &s
}

func (c *Controller) Liked() []Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Image, len(c.liked))
	copy(out, c.liked)
	return out
}

func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// runGeneration expects the generating flag to be held by the caller
func (c *Controller) runGeneration(ctx context.Context) {
	c.spawn(func() {
		if _, err := c.api.Generate(ctx); err != nil {
			c.mu.Lock()
			c.generating = false
			c.lastErr = err
			c.mu.Unlock()
			c.notify()
			return
		}

		images, err := c.api.PendingImages(ctx)

		c.mu.Lock()
		c.generating = false
		added := 0
		if err != nil {
			c.lastErr = err
		} else {
			added = c.ingestLocked(images)
		}
		trigger := added > 0 && c.claimReplenishLocked()
		c.mu.Unlock()
		c.notify()

		if trigger {
			c.runGeneration(ctx)
		}
	})
}

func (c *Controller) refreshViews(ctx context.Context) {
	c.mu.Lock()
	c.viewSeq++
	ticket := c.viewSeq
	c.mu.Unlock()

	liked, likedErr := c.api.LikedImages(ctx)
	stats, statsErr := c.api.Stats(ctx)

	c.mu.Lock()
	if likedErr != nil {
		c.lastErr = likedErr
	} else if ticket > c.likedApplied {
		c.liked = liked
		c.likedApplied = ticket
	}
	if statsErr != nil {
		c.lastErr = statsErr
	} else if ticket > c.statsApplied {
		c.stats = stats
		c.statsApplied = ticket
	}
	c.mu.Unlock()
	c.notify()
}

// ingestLocked appends unseen images in server order and returns how many were added
func (c *Controller) ingestLocked(images []Image) int {
	c.lastFetchEmpty = len(images) == 0

	added := 0
	for _, img := range images {
		if _, ok := c.seen[img.ID]; ok {
			continue
		}
		c.seen[img.ID] = struct{}{}
		c.queue = append(c.queue, img)
		added++
	}
	return added
}

// claimReplenishLocked sets the generating flag and returns true when the queue should be topped up
func (c *Controller) claimReplenishLocked() bool {
	if len(c.queue) > 1 || c.generating || c.loading {
		return false
	}
	// nothing on the server either, wait for a manual generate
	if len(c.queue) == 0 && c.lastFetchEmpty {
		return false
	}
	c.generating = true
	return true
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) spawn(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
