package tui

import (
	"context"
	"time"

	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/store"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const defaultColumnWidth = 28

type boardItem struct {
	board  model.Board
	recent bool
}

func (i boardItem) FilterValue() string { return i.board.Title }
func (i boardItem) Title() string {
	if i.recent {
		return i.board.Title + " •"
	}
	return i.board.Title
}
func (i boardItem) Description() string { return i.board.ID }

type appModel struct {
	ctx    context.Context
	co     *mutate.Coordinator
	client Client
	log    *zap.Logger

	stateDir string
	state    *store.TUIState
	events   <-chan mutate.Event

	width  int
	height int

	screen screen
	tab    boardTab
	mode   inputMode

	boardsList list.Model
	boardID    string
	cols       boardColumns
	sel        boardSelection
	colWidth   int
	labels     map[string]string

	showDetail bool
	comments   map[string][]model.Comment

	calMonth    time.Time
	tableOffset int

	input textinput.Model
	// editID is the list or card the open prompt or confirmation applies to.
	editID string

	loading bool
	offline bool

	flash    string
	flashErr bool
	flashSeq int
	flashTTL time.Duration

	now func() time.Time
}

func newAppModel(ctx context.Context, opts Options, st *store.TUIState, events <-chan mutate.Event) appModel {
	if st == nil {
		st = &store.TUIState{Version: 1}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := appModel{
		ctx:      ctx,
		co:       opts.Coordinator,
		client:   opts.Client,
		log:      log,
		stateDir: opts.StateDir,
		state:    st,
		events:   events,
		width:    100,
		height:   30,
		colWidth: opts.ColumnWidth,
		labels:   map[string]string{},
		comments: map[string][]model.Comment{},
		flashTTL: 3 * time.Second,
		now:      time.Now,
	}
	if m.colWidth <= 0 {
		m.colWidth = defaultColumnWidth
	}
	m.calMonth = monthStart(m.now())

	m.boardsList = newBoardsList()
	m.input = textinput.New()
	m.input.CharLimit = 512
	m.input.Width = 50

	m.boardID = opts.BoardID
	if m.boardID == "" && st.View == "board" {
		m.boardID = st.BoardID
	}
	if m.boardID != "" {
		m.screen = screenBoard
		m.loading = true
		m.showDetail = st.ShowDetail && st.BoardID == m.boardID
		if st.BoardID == m.boardID {
			m.sel.CardID = st.FocusCardID
		}
	}
	return m
}

func newBoardsList() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Boards"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName("board", "boards")
	// esc means back here, never quit.
	l.KeyMap.Quit.SetKeys("q")
	return l
}

func (m appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadBoards(), waitForEvent(m.events)}
	if m.boardID != "" {
		cmds = append(cmds, m.loadBoard(m.boardID), m.loadLabels(m.boardID))
	}
	return tea.Batch(cmds...)
}

func waitForEvent(ch <-chan mutate.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return storeEventMsg{ev: ev}
	}
}

func (m appModel) loadBoards() tea.Cmd {
	ctx, co := m.ctx, m.co
	return func() tea.Msg {
		boards, err := co.ListBoards(ctx)
		if err == nil || co.Cache == nil {
			return boardsLoadedMsg{boards: boards, err: err}
		}
		cached, cerr := co.Cache.ListBoards(ctx)
		if cerr != nil || len(cached) == 0 {
			return boardsLoadedMsg{err: err}
		}
		return boardsLoadedMsg{boards: cached, offline: true, err: err}
	}
}

// loadBoard fetches the board and falls back to the offline cache when the backend fails.
func (m appModel) loadBoard(boardID string) tea.Cmd {
	ctx, co := m.ctx, m.co
	return func() tea.Msg {
		snap, err := co.LoadBoard(ctx, boardID)
		if err == nil {
			return boardLoadedMsg{boardID: boardID, snap: snap}
		}
		cached, ok, cerr := co.LoadBoardOffline(ctx, boardID)
		if cerr != nil || !ok {
			return boardLoadedMsg{boardID: boardID, err: err}
		}
		return boardLoadedMsg{boardID: boardID, snap: cached, offline: true, err: err}
	}
}

func (m appModel) loadLabels(boardID string) tea.Cmd {
	if m.client == nil {
		return nil
	}
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		labels, err := client.ListLabels(ctx, boardID)
		return labelsLoadedMsg{boardID: boardID, labels: labels, err: err}
	}
}

func (m appModel) loadComments(cardID string) tea.Cmd {
	if m.client == nil || cardID == "" || mutate.IsTempID(cardID) {
		return nil
	}
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		cs, err := client.ListComments(ctx, cardID)
		return commentsLoadedMsg{cardID: cardID, comments: cs, err: err}
	}
}

// run executes a coordinator call off the UI goroutine. The optimistic store write happens
// inside fn, so the board refreshes from the event before the backend answers.
func (m appModel) run(op, id string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		newID, err := fn(ctx)
		if newID == "" {
			newID = id
		}
		return mutationDoneMsg{op: op, id: newID, err: err}
	}
}

func (m *appModel) showFlash(text string, isErr bool) tea.Cmd {
	m.flash = text
	m.flashErr = isErr
	m.flashSeq++
	seq := m.flashSeq
	d := m.flashTTL
	if isErr {
		d *= 2
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return flashClearMsg{seq: seq} })
}

// refresh rebuilds the board columns from the store and keeps the selection on the same card.
func (m *appModel) refresh() {
	if m.boardID == "" {
		m.cols = boardColumns{}
		return
	}
	m.cols = buildBoardColumns(m.co.Store, m.boardID)
	m.sel = m.cols.clamp(m.sel)
}

func (m *appModel) refreshBoardsList() {
	boards := m.co.Store.Boards()
	recent := map[string]int{}
	for i, id := range m.state.RecentBoardIDs {
		recent[id] = i + 1
	}
	items := make([]list.Item, 0, len(boards))
	// Recently opened boards first, newest first; the rest keep store order.
	for rank := 1; rank <= len(m.state.RecentBoardIDs); rank++ {
		for _, b := range boards {
			if recent[b.ID] == rank {
				items = append(items, boardItem{board: b, recent: true})
			}
		}
	}
	for _, b := range boards {
		if recent[b.ID] == 0 {
			items = append(items, boardItem{board: b})
		}
	}
	m.boardsList.SetItems(items)
}

func (m appModel) selectedCard() (model.Card, bool) {
	return m.cols.selectedCard(m.sel)
}

func (m appModel) selectedList() (model.List, bool) {
	return m.cols.selectedList(m.sel)
}

func (m appModel) labelTitle(id string) string {
	if t, ok := m.labels[id]; ok && t != "" {
		return t
	}
	return id
}

func (m appModel) cardPending(id string) bool {
	return m.co.Pending(model.KindCard, id) || mutate.IsTempID(id)
}

// captureState copies the current screen into the persisted TUI state.
func (m appModel) captureState() {
	st := m.state
	if st == nil {
		return
	}
	if m.screen == screenBoards || m.boardID == "" {
		st.View = "boards"
		return
	}
	st.View = "board"
	st.TouchBoard(m.boardID)
	st.FocusListID = ""
	st.FocusCardID = ""
	if l, ok := m.selectedList(); ok && !mutate.IsTempID(l.ID) {
		st.FocusListID = l.ID
	}
	if c, ok := m.selectedCard(); ok && !mutate.IsTempID(c.ID) {
		st.FocusCardID = c.ID
	}
	st.ShowDetail = m.showDetail
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
