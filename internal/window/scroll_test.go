package window

import "testing"

func TestController_StartsFollowing(t *testing.T) {
	c := NewController(50)
	if c.Mode() != Following {
		t.Errorf("expected Following at start, got %s", c.Mode())
	}
}

func TestController_FollowingSnapsToBottomOnAppend(t *testing.T) {
	c := NewController(50)
	c.OnContentChange(1000, 200)

	if c.ScrollTop() != 800 {
		t.Errorf("expected scrollTop 800, got %d", c.ScrollTop())
	}
	if c.DistanceFromBottom() != 0 {
		t.Errorf("expected distance 0 after follow, got %d", c.DistanceFromBottom())
	}

	c.OnContentChange(1400, 200)
	if c.ScrollTop() != 1200 || c.DistanceFromBottom() != 0 {
		t.Errorf("append while following did not stick to bottom: top=%d dist=%d",
			c.ScrollTop(), c.DistanceFromBottom())
	}
}

func TestController_ScrollAwayPins(t *testing.T) {
	c := NewController(50)
	c.OnContentChange(1000, 200)

	c.OnUserScroll(500, 1000, 200)
	if c.Mode() != PinnedByUser {
		t.Errorf("expected pin after scrolling 300 above bottom, got %s", c.Mode())
	}

	got := c.OnContentChange(1600, 200)
	if got != 500 {
		t.Errorf("append while pinned moved the viewport: %d", got)
	}
	if c.Mode() != PinnedByUser {
		t.Errorf("append must not change mode, got %s", c.Mode())
	}
}

func TestController_ScrollNearBottomResumesFollowing(t *testing.T) {
	c := NewController(50)
	c.OnContentChange(1000, 200)
	c.OnUserScroll(500, 1000, 200)

	// 30 units above the bottom is within the 50 unit threshold.
	c.OnUserScroll(770, 1000, 200)
	if c.Mode() != Following {
		t.Errorf("expected Following within threshold, got %s", c.Mode())
	}

	c.OnContentChange(2000, 200)
	if c.ScrollTop() != 1800 {
		t.Errorf("expected snap to bottom after resuming, got %d", c.ScrollTop())
	}
}

func TestController_ExactThresholdStaysFollowing(t *testing.T) {
	c := NewController(50)
	c.OnContentChange(1000, 200)

	c.OnUserScroll(750, 1000, 200)
	if c.Mode() != Following {
		t.Errorf("distance exactly at threshold should follow, got %s", c.Mode())
	}
}

func TestController_FollowForcesBottom(t *testing.T) {
	c := NewController(50)
	c.OnContentChange(1000, 200)
	c.OnUserScroll(100, 1000, 200)

	top := c.Follow()
	if top != 800 || c.Mode() != Following {
		t.Errorf("Follow() should land at the bottom in Following mode: top=%d mode=%s", top, c.Mode())
	}
}

func TestController_ClampsScroll(t *testing.T) {
	c := NewController(50)
	c.OnUserScroll(-10, 100, 200)
	if c.ScrollTop() != 0 {
		t.Errorf("negative scroll not clamped: %d", c.ScrollTop())
	}
	if c.DistanceFromBottom() != 0 {
		t.Errorf("content smaller than viewport should report distance 0, got %d", c.DistanceFromBottom())
	}

	c.OnUserScroll(5000, 1000, 200)
	if c.ScrollTop() != 800 {
		t.Errorf("overscroll not clamped: %d", c.ScrollTop())
	}
}
