// Package session holds the per-session conversational context that links the most
// recent capture to follow-up questions.
package session

import (
	"sync"
	"time"

	"github.com/lukasbauer/samaksh/internal/lang"
	"github.com/lukasbauer/samaksh/internal/vision"
)

// Snapshot is a point-in-time copy of a Context.
type Snapshot struct {
	LastText  *string
	LastImage []byte // shared with the Context; never mutated after Update
	Language  lang.Tag
	UpdatedAt time.Time
}

func (s Snapshot) HasText() bool  { return s.LastText != nil }
func (s Snapshot) HasImage() bool { return len(s.LastImage) > 0 }

// Context is the mutable state of one session. Text and language are always written
// together under mu, so a reader never sees one without the other.
type Context struct {
	id string

	mu        sync.Mutex
	lastText  *string
	lastImage []byte
	language  lang.Tag
	updatedAt time.Time
	lastUsed  time.Time
}

// NewContext returns an empty context in the default language.
func NewContext() *Context {
	return &Context{language: lang.Default}
}

// Update records a capture. The image is always replaced; text and language are only
// replaced when the extraction found text, so a capture without text keeps the
// previous text available for questions.
func (c *Context) Update(image []byte, ex vision.Extraction) {
	img := make([]byte, len(image))
	copy(img, image)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastImage = img
	if ex.Found() {
		text := *ex.Text
		c.lastText = &text
		c.language = ex.Language
	}
	c.updatedAt = time.Now()
}

// Read returns the current state.
func (c *Context) Read() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		LastImage: c.lastImage,
		Language:  c.language,
		UpdatedAt: c.updatedAt,
	}
	if c.lastText != nil {
		text := *c.lastText
		s.LastText = &text
	}
	return s
}

// ID returns the session id the context is stored under, or "" for a context
// created outside a Store.
func (c *Context) ID() string { return c.id }

func (c *Context) touch(now time.Time) {
	c.mu.Lock()
	c.lastUsed = now
	c.mu.Unlock()
}

func (c *Context) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updatedAt.After(c.lastUsed) {
		return c.updatedAt
	}
	return c.lastUsed
}
