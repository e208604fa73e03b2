package window

// Scroll intent states. Following keeps the viewport glued to the newest
// content; PinnedByUser holds position while the user reads history.
type Mode string

const (
	Following    Mode = "following"
	PinnedByUser Mode = "pinned"
)

// DefaultFollowThreshold is the distance from the bottom, in extent units,
// within which a user scroll re-engages following.
const DefaultFollowThreshold = 50

// Controller decides whether the viewport tracks appended content. It keeps
// the latest geometry so appends can be resolved without consulting the UI.
type Controller struct {
	threshold    int
	mode         Mode
	scrollTop    int
	totalExtent  int
	clientExtent int
}

// NewController returns a controller in Following mode. A non-positive
// threshold selects the default.
func NewController(threshold int) *Controller {
	if threshold <= 0 {
		threshold = DefaultFollowThreshold
	}
	return &Controller{threshold: threshold, mode: Following}
}

// Mode returns the current scroll intent.
func (c *Controller) Mode() Mode {
	return c.mode
}

// ScrollTop returns the current scroll offset.
func (c *Controller) ScrollTop() int {
	return c.scrollTop
}

// DistanceFromBottom returns how far above the newest content the viewport
// sits.
func (c *Controller) DistanceFromBottom() int {
	d := c.totalExtent - c.scrollTop - c.clientExtent
	if d < 0 {
		d = 0
	}
	return d
}

// OnUserScroll records a user-driven scroll and rederives the mode: within
// the threshold of the bottom means the user wants to follow again, further
// away pins the position.
func (c *Controller) OnUserScroll(scrollTop, totalExtent, clientExtent int) {
	c.scrollTop = clamp(scrollTop, 0, maxScroll(totalExtent, clientExtent))
	c.totalExtent = totalExtent
	c.clientExtent = clientExtent

	if c.DistanceFromBottom() > c.threshold {
		c.mode = PinnedByUser
	} else {
		c.mode = Following
	}
}

// OnContentChange resolves a content size change. While following, the
// scroll offset snaps to the bottom and the distance from it becomes zero;
// while pinned, the offset stays where the user left it.
func (c *Controller) OnContentChange(totalExtent, clientExtent int) int {
	c.totalExtent = totalExtent
	c.clientExtent = clientExtent

	if c.mode == Following {
		c.scrollTop = maxScroll(totalExtent, clientExtent)
	} else {
		c.scrollTop = clamp(c.scrollTop, 0, maxScroll(totalExtent, clientExtent))
	}
	return c.scrollTop
}

// Follow forces Following mode and snaps to the bottom.
func (c *Controller) Follow() int {
	c.mode = Following
	c.scrollTop = maxScroll(c.totalExtent, c.clientExtent)
	return c.scrollTop
}

func maxScroll(total, client int) int {
	m := total - client
	if m < 0 {
		return 0
	}
	return m
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
