package viewer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ai-auto-register/claudia/internal/export"
	"github.com/ai-auto-register/claudia/internal/logging"
	"github.com/ai-auto-register/claudia/internal/transcript"
	"github.com/ai-auto-register/claudia/internal/visibility"
	"github.com/ai-auto-register/claudia/internal/window"
)

// PagerOptions configures the interactive pager.
type PagerOptions struct {
	Title           string
	Info            export.Info
	Filter          *visibility.Filter
	Logger          *logging.Logger
	Estimate        int
	Overscan        int
	FollowThreshold int
	Fullscreen      bool   // start in the expanded view
	ExportDir       string // where 'e' writes; empty means cwd
}

// Run opens the interactive pager over a session and blocks until the user
// quits. The caller still owns the session and closes it afterwards.
func Run(s *Session, opts PagerOptions) error {
	prog := tea.NewProgram(
		newPagerModel(s, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := prog.Run()
	return err
}

// changeMsg is sent when the session's state changed.
type changeMsg struct{}

// noticeExpiredMsg clears a transient footer notice.
type noticeExpiredMsg struct{ id int }

// pane is one independent view over the projection: the compact and
// fullscreen views each hold their own windower and scroll controller.
type pane struct {
	win  *window.Windower
	ctrl *window.Controller
}

// renderKey caches rendered items per view; measurements differ between the
// compact and expanded renderings.
type renderKey struct {
	seq      uint64
	expanded bool
}

// pagerModel is the Bubble Tea model for the transcript pager.
type pagerModel struct {
	session *Session
	filter  *visibility.Filter
	logger  *logging.Logger
	title   string
	info    export.Info

	width, height int
	ready         bool

	fullscreen bool
	panes      [2]pane

	msgs     []transcript.Message
	visible  []int
	lastLog  *transcript.Log
	rendered map[renderKey]string

	exportDir string

	// Search state
	searching    bool
	searchInput  textinput.Model
	searchQuery  string
	matches      []int // positions in the visible projection
	matchIndex   int
	searchFailed bool

	notice   string
	noticeID int
}

func newPagerModel(s *Session, opts PagerOptions) *pagerModel {
	filter := opts.Filter
	if filter == nil {
		filter = visibility.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New()
	}

	m := &pagerModel{
		session:    s,
		filter:     filter,
		logger:     logger.WithComponent("pager").WithRun(string(s.RunID())),
		title:      opts.Title,
		info:       opts.Info,
		fullscreen: opts.Fullscreen,
		exportDir:  opts.ExportDir,
		rendered:   make(map[renderKey]string),
	}
	if m.title == "" {
		m.title = string(s.RunID())
	}
	// Extents are terminal lines here, so the generic estimate is far too
	// coarse; a typical compact item renders a handful of lines.
	estimate := opts.Estimate
	if estimate <= 0 {
		estimate = 4
	}
	for i := range m.panes {
		m.panes[i] = pane{
			win:  window.New(estimate, opts.Overscan),
			ctrl: window.NewController(opts.FollowThreshold),
		}
	}
	return m
}

func (m *pagerModel) Init() tea.Cmd {
	return waitForChange(m.session.Changed())
}

// waitForChange blocks on the session's coalesced change channel and turns
// each wakeup into a message.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changeMsg{}
	}
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Search input mode swallows keys until enter or esc.
	if m.searching {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "enter":
				m.searchQuery = m.searchInput.Value()
				m.searching = false
				m.executeSearch()
				if len(m.matches) > 0 {
					m.jumpToMatch(0)
				}
				m.layout()
				return m, nil
			case "esc", "ctrl+c":
				m.searching = false
				m.clearSearch()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case changeMsg:
		m.syncProjection()
		cmds = append(cmds, waitForChange(m.session.Changed()))

	case noticeExpiredMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}

	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg.String())
		if quit {
			return m, tea.Quit
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				m.scrollBy(-3)
			case tea.MouseButtonWheelDown:
				m.scrollBy(3)
			}
		}

	case tea.WindowSizeMsg:
		resized := m.width != msg.Width
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		if resized {
			// Wrapping changed, so cached renderings are stale. Extents
			// re-learn lazily as items mount at the new width.
			m.rendered = make(map[renderKey]string)
		}
		if m.msgs == nil {
			m.syncProjection()
		}
	}

	m.layout()
	return m, tea.Batch(cmds...)
}

// handleKey resolves one key press. The second return value reports quit.
func (m *pagerModel) handleKey(key string) (tea.Cmd, bool) {
	switch key {
	case "q", "ctrl+c", "esc":
		if key == "esc" && m.searchQuery != "" {
			m.clearSearch()
			return nil, false
		}
		return nil, true
	case "up", "k":
		m.scrollBy(-1)
	case "down", "j":
		m.scrollBy(1)
	case "pgup", "b":
		m.scrollBy(-(m.bodyHeight() - 1))
	case "pgdown", " ":
		m.scrollBy(m.bodyHeight() - 1)
	case "g", "home":
		p := m.activePane()
		p.ctrl.OnUserScroll(0, p.win.TotalExtent(), m.bodyHeight())
	case "G", "end":
		m.activePane().ctrl.Follow()
	case "f":
		m.fullscreen = !m.fullscreen
	case "/":
		m.searching = true
		m.searchInput = textinput.New()
		m.searchInput.Placeholder = "Search..."
		m.searchInput.Focus()
		m.searchInput.CharLimit = 100
		m.searchInput.Width = 40
		if m.searchQuery != "" {
			m.searchInput.SetValue(m.searchQuery)
		}
		return textinput.Blink, false
	case "n":
		if len(m.matches) > 0 {
			m.matchIndex = (m.matchIndex + 1) % len(m.matches)
			m.jumpToMatch(m.matchIndex)
		}
	case "N":
		if len(m.matches) > 0 {
			m.matchIndex--
			if m.matchIndex < 0 {
				m.matchIndex = len(m.matches) - 1
			}
			m.jumpToMatch(m.matchIndex)
		}
	case "y":
		return m.copyMarkdown(), false
	case "e":
		return m.exportToFile(), false
	case "r":
		if m.session.FetchErr() != nil {
			m.session.Retry()
			return m.setNotice("retrying snapshot fetch"), false
		}
	case "x":
		if m.session.Status() == transcript.StatusRunning {
			if err := m.session.Stop(context.Background()); err != nil {
				return m.setNotice("stop failed: " + err.Error()), false
			}
			return m.setNotice("stop requested"), false
		}
	}
	return nil, false
}

// copyMarkdown places the markdown export on the system clipboard.
func (m *pagerModel) copyMarkdown() tea.Cmd {
	md := export.Markdown(m.session.Log().Messages(), m.info)
	if err := clipboard.WriteAll(md); err != nil {
		return m.setNotice("clipboard unavailable: " + err.Error())
	}
	return m.setNotice("markdown copied to clipboard")
}

// exportToFile writes the markdown export next to the viewer.
func (m *pagerModel) exportToFile() tea.Cmd {
	name := fmt.Sprintf("%s.md", m.session.RunID())
	path := filepath.Join(m.exportDir, name)
	md := export.Markdown(m.session.Log().Messages(), m.info)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return m.setNotice("export failed: " + err.Error())
	}
	m.logger.ExportWritten("markdown", path, len(md))
	return m.setNotice("exported to " + path)
}

// setNotice shows a transient footer message for a few seconds.
func (m *pagerModel) setNotice(text string) tea.Cmd {
	m.notice = text
	m.noticeID++
	id := m.noticeID
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

func (m *pagerModel) activePane() *pane {
	if m.fullscreen {
		return &m.panes[1]
	}
	return &m.panes[0]
}

func (m *pagerModel) bodyHeight() int {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

// scrollBy applies a user-driven scroll to the active pane.
func (m *pagerModel) scrollBy(delta int) {
	p := m.activePane()
	p.ctrl.OnUserScroll(p.ctrl.ScrollTop()+delta, p.win.TotalExtent(), m.bodyHeight())
}

// syncProjection refreshes the visible projection from the log. Appends keep
// the render cache and the filter's index; a rebuilt log drops both. The
// ingestor installs a fresh Log on every snapshot merge, so pointer identity
// distinguishes a rebuild from plain appends even when the rewritten
// transcript has the same length as its predecessor.
func (m *pagerModel) syncProjection() {
	log := m.session.Log()
	msgs := log.Messages()

	if m.lastLog != nil && log != m.lastLog {
		m.rendered = make(map[renderKey]string)
		m.filter.Reset()
	}
	m.lastLog = log
	m.msgs = msgs

	m.visible = m.filter.Visible(msgs)
	keys := make([]uint64, len(m.visible))
	for i, idx := range m.visible {
		keys[i] = msgs[idx].SequenceIndex
	}
	for i := range m.panes {
		m.panes[i].win.SetItems(keys)
		m.panes[i].ctrl.OnContentChange(m.panes[i].win.TotalExtent(), m.bodyHeight())
	}

	if m.searchQuery != "" {
		m.executeSearch()
	}
}

// layout measures the items around the scroll position so offsets near the
// viewport are real rather than estimated. Measuring shifts later offsets
// and may move the follow position, so passes repeat until the mounted
// range is fully measured and the scroll position is stable. The pass cap
// bounds the cost of a frame; leftover estimates settle on later frames.
func (m *pagerModel) layout() {
	if !m.ready {
		return
	}
	p := m.activePane()
	expanded := m.fullscreen
	bodyH := m.bodyHeight()

	for pass := 0; pass < 8; pass++ {
		start, end := p.win.Range(p.ctrl.ScrollTop(), bodyH)
		changed := false
		for pos := start; pos < end; pos++ {
			seq := p.win.KeyAt(pos)
			extent := m.lineCount(seq, expanded)
			if p.win.ExtentOf(pos) != extent {
				p.win.Measure(seq, extent)
				changed = true
			}
		}
		p.ctrl.OnContentChange(p.win.TotalExtent(), bodyH)
		if !changed {
			break
		}
	}
}

// renderedItem returns the cached rendering of one message.
func (m *pagerModel) renderedItem(seq uint64, expanded bool) string {
	key := renderKey{seq: seq, expanded: expanded}
	if s, ok := m.rendered[key]; ok {
		return s
	}
	if seq >= uint64(len(m.msgs)) {
		return ""
	}
	s := renderItem(m.msgs[seq], m.width, expanded)
	m.rendered[key] = s
	return s
}

func (m *pagerModel) lineCount(seq uint64, expanded bool) int {
	s := m.renderedItem(seq, expanded)
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// executeSearch finds visible items matching the query.
func (m *pagerModel) executeSearch() {
	m.matches = nil
	m.matchIndex = 0
	m.searchFailed = false

	if m.searchQuery == "" {
		return
	}
	query := strings.ToLower(m.searchQuery)
	for pos, idx := range m.visible {
		if strings.Contains(searchText(m.msgs[idx]), query) {
			m.matches = append(m.matches, pos)
		}
	}
	if len(m.matches) == 0 {
		m.searchFailed = true
	}
}

// jumpToMatch scrolls the active pane so the match sits in the upper third.
func (m *pagerModel) jumpToMatch(index int) {
	if index < 0 || index >= len(m.matches) {
		return
	}
	p := m.activePane()
	target := p.win.OffsetOf(m.matches[index]) - m.bodyHeight()/3
	if target < 0 {
		target = 0
	}
	p.ctrl.OnUserScroll(target, p.win.TotalExtent(), m.bodyHeight())
}

func (m *pagerModel) clearSearch() {
	m.searchQuery = ""
	m.matches = nil
	m.matchIndex = 0
	m.searchFailed = false
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}
	return m.renderHeader() + "\n" + m.renderBody() + "\n" + m.renderFooter()
}

func (m *pagerModel) renderHeader() string {
	title := pagerTitleStyle.Render(m.title)
	view := ""
	if m.fullscreen {
		view = pagerInfoStyle.Render(" [full] ")
	}
	fill := strings.Repeat("─", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(view)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, view, pagerInfoStyle.Render(fill))
}

// renderBody assembles the visible lines of the mounted items.
func (m *pagerModel) renderBody() string {
	p := m.activePane()
	bodyH := m.bodyHeight()

	if p.win.Len() == 0 {
		return m.renderEmpty(bodyH)
	}

	top := p.ctrl.ScrollTop()
	start, end := p.win.Range(top, bodyH)

	var lines []string
	for pos := start; pos < end; pos++ {
		seq := p.win.KeyAt(pos)
		item := m.renderedItem(seq, m.fullscreen)
		if item == "" {
			continue
		}
		lines = append(lines, strings.Split(item, "\n")...)
	}

	skip := top - p.win.OffsetOf(start)
	if skip < 0 {
		skip = 0
	}
	if skip > len(lines) {
		skip = len(lines)
	}
	lines = lines[skip:]
	if len(lines) > bodyH {
		lines = lines[:bodyH]
	}
	for len(lines) < bodyH {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderEmpty fills the body when there is nothing to show yet.
func (m *pagerModel) renderEmpty(bodyH int) string {
	lines := make([]string, bodyH)
	if err := m.session.FetchErr(); err != nil {
		lines[0] = "  " + errorStyle.Render("transcript fetch failed: "+err.Error())
		if bodyH > 1 {
			lines[1] = "  " + dimStyle.Render("r: retry")
		}
	} else {
		lines[0] = "  " + dimStyle.Render("waiting for transcript...")
	}
	return strings.Join(lines, "\n")
}

func (m *pagerModel) renderFooter() string {
	if m.searching {
		prompt := warnStyle.Render("/")
		return prompt + m.searchInput.View()
	}

	info := fmt.Sprintf(" %d%% ", m.scrollPercent())

	var help string
	switch {
	case m.searchFailed:
		help = fmt.Sprintf(" %s │ /: search ", errorStyle.Render("Pattern not found"))
	case len(m.matches) > 0:
		matchInfo := warnStyle.Render(fmt.Sprintf("[%d/%d]", m.matchIndex+1, len(m.matches)))
		help = fmt.Sprintf(" %s │ n/N: next/prev │ /: search │ esc: clear ", matchInfo)
	case m.notice != "":
		help = " " + valueStyle.Render(m.notice) + " "
	default:
		help = fmt.Sprintf(" %s │ q: quit │ f: %s │ /: search │ y: copy │ e: export ",
			m.statusIndicator(), m.viewToggleHint())
	}

	var extras []string
	if n := m.session.ParseErrors(); n > 0 {
		extras = append(extras, warnStyle.Render(fmt.Sprintf("%d bad lines", n)))
	}
	if m.session.Fallback() {
		extras = append(extras, dimStyle.Render("(polling)"))
	}
	if len(extras) > 0 {
		help += strings.Join(extras, " ") + " "
	}

	fill := strings.Repeat("─", max(0, m.width-lipgloss.Width(help)-lipgloss.Width(info)))
	return pagerHelpStyle.Render(help) + pagerInfoStyle.Render(fill) + pagerInfoStyle.Render(info)
}

func (m *pagerModel) viewToggleHint() string {
	if m.fullscreen {
		return "compact"
	}
	return "expand"
}

// statusIndicator renders the run status for the footer.
func (m *pagerModel) statusIndicator() string {
	switch m.session.Status() {
	case transcript.StatusRunning:
		return liveStyle.Render("● LIVE") + dimStyle.Render(" x: stop")
	case transcript.StatusCompleted:
		return successStyle.Render("COMPLETED")
	case transcript.StatusFailed:
		return errorStyle.Render("FAILED")
	case transcript.StatusCancelled:
		return warnStyle.Render("CANCELLED")
	default:
		return dimStyle.Render(m.session.Status())
	}
}

func (m *pagerModel) scrollPercent() int {
	p := m.activePane()
	denom := p.win.TotalExtent() - m.bodyHeight()
	if denom <= 0 {
		return 100
	}
	percent := p.ctrl.ScrollTop() * 100 / denom
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	return percent
}
