package viewer

import (
	"strings"
	"testing"

	"github.com/ai-auto-register/claudia/internal/cache"
	"github.com/ai-auto-register/claudia/internal/window"
)

// openTestPager builds a pager model over a session fed by n transcript
// lines, sized and laid out as if the terminal were 100x12.
func openTestPager(t *testing.T, n int) (*pagerModel, *Session) {
	t.Helper()

	lines := make([]string, n)
	for i := range lines {
		lines[i] = line(string(rune('a' + i%26)))
	}
	src := &fakeSource{text: strings.Join(lines, "\n")}

	s := Open("run1", testConfig(src, cache.New(8, 0)))
	t.Cleanup(s.Close)
	waitFor(t, "snapshot", func() bool { return s.Log().Len() == n })

	m := newPagerModel(s, PagerOptions{FollowThreshold: 5})
	m.width = 100
	m.height = 12
	m.ready = true
	m.syncProjection()
	m.layout()
	return m, s
}

func TestPager_BodyFillsViewport(t *testing.T) {
	m, _ := openTestPager(t, 30)

	body := m.renderBody()
	if got := strings.Count(body, "\n") + 1; got != m.bodyHeight() {
		t.Errorf("body has %d lines, want %d", got, m.bodyHeight())
	}
	if !strings.Contains(body, "ASSISTANT") {
		t.Errorf("body missing rendered items:\n%s", body)
	}
}

func TestPager_StartsFollowingAtBottom(t *testing.T) {
	m, _ := openTestPager(t, 30)

	p := m.activePane()
	if p.ctrl.Mode() != window.Following {
		t.Fatalf("initial mode = %q, want following", p.ctrl.Mode())
	}
	wantTop := p.win.TotalExtent() - m.bodyHeight()
	if p.ctrl.ScrollTop() != wantTop {
		t.Errorf("scrollTop = %d, want bottom %d", p.ctrl.ScrollTop(), wantTop)
	}
}

func TestPager_ScrollUpPinsThenFollowResumes(t *testing.T) {
	m, _ := openTestPager(t, 30)
	p := m.activePane()

	m.scrollBy(-15)
	if p.ctrl.Mode() != window.PinnedByUser {
		t.Fatalf("mode after scrolling away = %q, want pinned", p.ctrl.Mode())
	}

	m.handleKey("G")
	if p.ctrl.Mode() != window.Following {
		t.Errorf("mode after G = %q, want following", p.ctrl.Mode())
	}
}

func TestPager_AppendWhileFollowingSnaps(t *testing.T) {
	m, s := openTestPager(t, 30)
	p := m.activePane()

	before := p.ctrl.ScrollTop()
	sub := m.session.source.(*fakeSource).subscription()
	for i := 0; i < 5; i++ {
		sub.PublishLine(line("zz"))
	}
	waitFor(t, "appends", func() bool { return s.Log().Len() == 35 })

	m.syncProjection()
	m.layout()

	if p.ctrl.ScrollTop() <= before {
		t.Errorf("scrollTop did not advance on append while following: %d -> %d",
			before, p.ctrl.ScrollTop())
	}
	if p.ctrl.DistanceFromBottom() != 0 {
		t.Errorf("distance from bottom = %d after snap", p.ctrl.DistanceFromBottom())
	}
}

func TestPager_AppendWhilePinnedHolds(t *testing.T) {
	m, s := openTestPager(t, 30)
	p := m.activePane()

	m.scrollBy(-15)
	held := p.ctrl.ScrollTop()

	sub := m.session.source.(*fakeSource).subscription()
	sub.PublishLine(line("zz"))
	waitFor(t, "append", func() bool { return s.Log().Len() == 31 })

	m.syncProjection()
	m.layout()

	if p.ctrl.ScrollTop() != held {
		t.Errorf("pinned scrollTop moved on append: %d -> %d", held, p.ctrl.ScrollTop())
	}
}

func TestPager_FullscreenPaneIsIndependent(t *testing.T) {
	m, _ := openTestPager(t, 30)

	m.scrollBy(-15)
	pinnedTop := m.panes[0].ctrl.ScrollTop()

	m.handleKey("f")
	if !m.fullscreen {
		t.Fatal("f did not toggle fullscreen")
	}
	m.layout()

	if m.panes[1].ctrl.Mode() != window.Following {
		t.Errorf("fullscreen pane mode = %q, want its own following state", m.panes[1].ctrl.Mode())
	}
	if m.panes[0].ctrl.ScrollTop() != pinnedTop {
		t.Errorf("toggling views disturbed the compact pane: %d -> %d",
			pinnedTop, m.panes[0].ctrl.ScrollTop())
	}
}

func TestPager_SearchJumpsAndClears(t *testing.T) {
	m, _ := openTestPager(t, 30)

	m.searchQuery = "assistant"
	m.executeSearch()
	if m.searchFailed || len(m.matches) == 0 {
		t.Fatal("search found no items")
	}

	m.jumpToMatch(0)
	if m.activePane().ctrl.ScrollTop() != 0 {
		t.Errorf("first match jump landed at %d, want 0", m.activePane().ctrl.ScrollTop())
	}

	m.clearSearch()
	if m.searchQuery != "" || m.matches != nil {
		t.Error("clearSearch left state behind")
	}
}

func TestPager_RebuiltLogRestartsProjection(t *testing.T) {
	lines := []string{
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"telescope","input":{}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"out"}]}}`,
	}
	src := &fakeSource{text: strings.Join(lines, "\n")}
	s := Open("run1", testConfig(src, cache.New(8, 0)))
	t.Cleanup(s.Close)
	waitFor(t, "snapshot", func() bool { return s.Log().Len() == 2 })

	m := newPagerModel(s, PagerOptions{})
	m.width = 100
	m.height = 12
	m.ready = true
	m.syncProjection()
	if len(m.visible) != 2 {
		t.Fatalf("telescope result should be visible, got %v", m.visible)
	}

	// The transcript is truncated and rewritten at the same length, rebinding
	// t1 to a tool whose results are drawn elsewhere; a poll or retry then
	// replaces the log wholesale.
	rewritten := []string{
		strings.Replace(lines[0], "telescope", "bash", 1),
		lines[1],
	}
	src.set(strings.Join(rewritten, "\n"), nil)
	s.Retry()
	waitFor(t, "rebuild", func() bool {
		return s.Log().Len() == 2 && s.Log().At(0).RawLine == rewritten[0]
	})

	m.syncProjection()
	if len(m.visible) != 1 || m.visible[0] != 0 {
		t.Errorf("rebuilt log must reproject from scratch, got %v", m.visible)
	}
}

func TestPager_FooterShowsLive(t *testing.T) {
	m, _ := openTestPager(t, 5)

	footer := m.renderFooter()
	if !strings.Contains(footer, "LIVE") {
		t.Errorf("running footer missing live indicator: %q", footer)
	}
	if !strings.Contains(footer, "%") {
		t.Errorf("footer missing scroll percent: %q", footer)
	}
}
