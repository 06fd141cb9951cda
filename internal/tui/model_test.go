package tui

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"kanban-cli/internal/api"
	"kanban-cli/internal/apitest"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"
)

type tuiEnv struct {
	srv    *apitest.Server
	client *api.Client
	co     *mutate.Coordinator
	owner  string
	board  string
	todo   string
	done   string
	card   string
}

func newTUIEnv(t *testing.T, opts ...mutate.Option) *tuiEnv {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	e := &tuiEnv{srv: srv}
	e.owner = srv.SeedUser("owner@example.com", "secret", "owner")
	e.board = srv.SeedBoard(e.owner, "Roadmap")
	e.todo = srv.SeedList(e.board, "Todo")
	e.done = srv.SeedList(e.board, "Done")
	e.card = srv.SeedCard(e.todo, "Existing")

	e.client = api.NewClient(srv.BaseURL(), api.WithTokenSource(api.StaticToken(srv.Token(e.owner))))
	opts = append([]mutate.Option{mutate.WithActor(func() string { return e.owner })}, opts...)
	e.co = mutate.New(e.client, opts...)
	return e
}

func (e *tuiEnv) model(t *testing.T, boardID string) appModel {
	t.Helper()
	m := newAppModel(context.Background(), Options{Coordinator: e.co, Client: e.client, BoardID: boardID}, nil, nil)
	m.flashTTL = time.Millisecond
	m.width, m.height = 140, 30
	return drive(t, m, m.Init())
}

// drive runs cmd and every command it leads to, feeding the messages back into the model.
// Flash expiry is dropped so tests can read the flash.
func drive(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatalf("command queue did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, flashClearMsg, tea.QuitMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, nc := m.Update(msg)
			m = next.(appModel)
			queue = append(queue, nc)
		}
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys and discards the commands they return (prompt focus, cursor blink).
func press(m appModel, keys ...string) appModel {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(appModel)
	}
	return m
}

// pressRun sends one key and runs the resulting commands to completion.
func pressRun(t *testing.T, m appModel, key string) appModel {
	t.Helper()
	next, cmd := m.Update(keyMsg(key))
	return drive(t, next.(appModel), cmd)
}

func containsPlain(s, want string) bool {
	return strings.Contains(xansi.Strip(s), want)
}

func TestModel_OpensBoardFromOptions(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)

	if m.screen != screenBoard || m.loading {
		t.Fatalf("expected loaded board screen, got screen=%v loading=%v", m.screen, m.loading)
	}
	if len(m.cols.cols) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(m.cols.cols))
	}
	c, ok := m.selectedCard()
	if !ok || c.ID != e.card {
		t.Fatalf("expected the seeded card to be focused, got %+v (ok=%v)", c, ok)
	}
	view := m.View()
	for _, want := range []string{"Roadmap", "Todo (1)", "Done (0)", "Existing"} {
		if !containsPlain(view, want) {
			t.Fatalf("expected %q in view, got:\n%s", want, xansi.Strip(view))
		}
	}
}

func TestModel_BoardsScreenOpensSelectedBoard(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, "")
	if m.screen != screenBoards {
		t.Fatalf("expected boards screen without a board id")
	}
	if n := len(m.boardsList.Items()); n != 1 {
		t.Fatalf("expected 1 board in the picker, got %d", n)
	}
	m = pressRun(t, m, "enter")
	if m.screen != screenBoard || m.boardID != e.board {
		t.Fatalf("expected enter to open %s, got screen=%v board=%q", e.board, m.screen, m.boardID)
	}
	if len(m.state.RecentBoardIDs) == 0 || m.state.RecentBoardIDs[0] != e.board {
		t.Fatalf("expected opened board to be recorded as recent, got %v", m.state.RecentBoardIDs)
	}

	m = press(m, "esc")
	if m.screen != screenBoards {
		t.Fatalf("expected esc to return to boards")
	}
}

func TestModel_CreateCardFromPrompt(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)

	m = press(m, "n")
	if m.mode != modeNewCard {
		t.Fatalf("expected new-card prompt, got mode %v", m.mode)
	}
	m = press(m, "Draft plan")
	m = pressRun(t, m, "enter")

	if m.mode != modeNormal {
		t.Fatalf("expected prompt to close, got mode %v", m.mode)
	}
	cards := e.srv.CardsInList(e.todo)
	if len(cards) != 2 || cards[1].Title != "Draft plan" {
		t.Fatalf("expected new card appended on the server, got %+v", cards)
	}
	c, ok := m.selectedCard()
	if !ok || c.ID != cards[1].ID {
		t.Fatalf("expected focus on the created card %s, got %+v", cards[1].ID, c)
	}
	if mutate.IsTempID(c.ID) {
		t.Fatalf("expected server id after confirmation, got %s", c.ID)
	}
}

func TestModel_BlankTitleIsRejectedLocally(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)

	m = press(m, "n", "   ")
	m = pressRun(t, m, "enter")

	if got := e.srv.Hits("POST /boards/{boardID}/lists/{listID}/cards"); got != 0 {
		t.Fatalf("expected no create request for a blank title, got %d", got)
	}
	if !m.flashErr || !strings.Contains(m.flash, "title") {
		t.Fatalf("expected a validation flash about the title, got %q (err=%v)", m.flash, m.flashErr)
	}
	if n := len(m.cols.cols[0].cards); n != 1 {
		t.Fatalf("expected the list to keep 1 card, got %d", n)
	}
}

func TestModel_MoveCardToNextList(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)

	m = pressRun(t, m, "L")

	got, ok := e.srv.Card(e.card)
	if !ok || got.ListID != e.done {
		t.Fatalf("expected card moved to %s on the server, got %+v", e.done, got)
	}
	if m.sel.Col != 1 || m.sel.CardID != e.card {
		t.Fatalf("expected focus to follow the card into the next list, got %+v", m.sel)
	}

	// No list further right: nothing is sent.
	before := e.srv.Hits("POST /cards/{cardID}/move")
	m = pressRun(t, m, "L")
	if after := e.srv.Hits("POST /cards/{cardID}/move"); after != before {
		t.Fatalf("expected no move past the last list, hits %d -> %d", before, after)
	}
}

func TestModel_FailedMoveRollsBack(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)
	e.srv.Fail("POST /cards/{cardID}/move", http.StatusInternalServerError, "boom")

	m = pressRun(t, m, "L")

	c, ok := e.co.Store.Card(e.card)
	if !ok || c.ListID != e.todo {
		t.Fatalf("expected card rolled back to %s, got %+v", e.todo, c)
	}
	if len(m.cols.cols[0].cards) != 1 || len(m.cols.cols[1].cards) != 0 {
		t.Fatalf("expected columns to show the rolled back board")
	}
	if !m.flashErr || m.flash == "" {
		t.Fatalf("expected an error flash after the failed move")
	}
}

func TestModel_ToggleCompleted(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)

	m = pressRun(t, m, " ")

	if got, _ := e.srv.Card(e.card); !got.Completed {
		t.Fatalf("expected card completed on the server")
	}
	if c, _ := m.selectedCard(); !c.Completed {
		t.Fatalf("expected card completed in the view")
	}
	if !containsPlain(m.View(), "✓ Existing") {
		t.Fatalf("expected completed marker in the board view")
	}
}

func TestModel_DeleteCardNeedsConfirmation(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)

	m = press(m, "x")
	if m.mode != modeConfirmDeleteCard || !containsPlain(m.View(), "Delete card?") {
		t.Fatalf("expected delete confirmation")
	}
	m = pressRun(t, m, "n")
	if _, ok := e.srv.Card(e.card); !ok {
		t.Fatalf("expected card kept after declining")
	}

	m = press(m, "x")
	m = pressRun(t, m, "y")
	if _, ok := e.srv.Card(e.card); ok {
		t.Fatalf("expected card deleted on the server")
	}
	if _, ok := m.selectedCard(); ok {
		t.Fatalf("expected no card left to select")
	}
}

func TestModel_CreateAndMoveList(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)

	m = press(m, "N", "Later")
	m = pressRun(t, m, "enter")
	if len(m.cols.cols) != 3 || m.cols.cols[2].list.Title != "Later" {
		t.Fatalf("expected Later appended as the third list, got %+v", m.cols.lists())
	}
	if m.sel.Col != 2 {
		t.Fatalf("expected focus on the new list, got col %d", m.sel.Col)
	}

	m = pressRun(t, m, "[")
	lists := m.cols.lists()
	if lists[1].Title != "Later" || lists[2].Title != "Done" {
		t.Fatalf("expected Later moved before Done, got %v", []string{lists[0].Title, lists[1].Title, lists[2].Title})
	}
	if m.sel.Col != 1 {
		t.Fatalf("expected focus to follow the moved list, got col %d", m.sel.Col)
	}
	for i, l := range lists {
		if l.Position != i {
			t.Fatalf("expected dense list positions, got %d at %d", l.Position, i)
		}
	}
}

func TestModel_RenameCard(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)

	m = press(m, "e")
	if m.input.Value() != "Existing" {
		t.Fatalf("expected prompt prefilled with the title, got %q", m.input.Value())
	}
	m.input.SetValue("Renamed")
	m = pressRun(t, m, "enter")
	if got, _ := e.srv.Card(e.card); got.Title != "Renamed" {
		t.Fatalf("expected renamed card on the server, got %q", got.Title)
	}

	m = press(m, "e", "esc")
	if m.mode != modeNormal {
		t.Fatalf("expected esc to cancel the prompt")
	}
}

func TestModel_DetailShowsComments(t *testing.T) {
	e := newTUIEnv(t)
	if _, err := e.client.CreateComment(context.Background(), e.card, "Looks **good**"); err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	m := e.model(t, e.board)

	m = pressRun(t, m, "enter")
	if !m.showDetail {
		t.Fatalf("expected detail pane open")
	}
	if len(m.comments[e.card]) != 1 {
		t.Fatalf("expected comments loaded for the card, got %v", m.comments[e.card])
	}
	view := m.View()
	if !containsPlain(view, "Comments") || !containsPlain(view, "Looks") {
		t.Fatalf("expected comment thread in the detail pane, got:\n%s", xansi.Strip(view))
	}

	m = press(m, "esc")
	if m.showDetail || m.screen != screenBoard {
		t.Fatalf("expected esc to close the detail pane first")
	}
}

func TestModel_Tabs(t *testing.T) {
	e := newTUIEnv(t)
	m := e.model(t, e.board)
	m.now = func() time.Time { return time.Date(2026, 5, 14, 12, 0, 0, 0, time.Local) }
	m.calMonth = monthStart(m.now())

	m = press(m, "s")
	if !containsPlain(m.View(), "total      1") {
		t.Fatalf("expected stats tab, got:\n%s", xansi.Strip(m.View()))
	}
	m = press(m, "c")
	if !containsPlain(m.View(), "May 2026") {
		t.Fatalf("expected calendar for May 2026")
	}
	m = press(m, "l")
	if !containsPlain(m.View(), "June 2026") {
		t.Fatalf("expected l to advance the calendar month")
	}
	m = press(m, "t")
	if !containsPlain(m.View(), "Existing") || !containsPlain(m.View(), "Todo") {
		t.Fatalf("expected table rows")
	}
	m = press(m, "b")
	if m.tab != tabBoard {
		t.Fatalf("expected b to return to the board tab")
	}
}

func TestModel_OfflineFallback(t *testing.T) {
	e := newTUIEnv(t, mutate.WithCache(store.Cache{Dir: t.TempDir()}))
	// Warm the cache, then lose the backend.
	if _, err := e.co.LoadBoard(context.Background(), e.board); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	e.srv.Close()

	m := e.model(t, e.board)
	if !m.offline {
		t.Fatalf("expected offline mode when the backend is unreachable")
	}
	if c, ok := m.selectedCard(); !ok || c.Title != "Existing" {
		t.Fatalf("expected cached board content, got %+v", c)
	}
	if !strings.HasPrefix(m.flash, "Offline") {
		t.Fatalf("expected offline flash, got %q", m.flash)
	}
}

func TestModel_CaptureState(t *testing.T) {
	e := newTUIEnv(t)
	second := e.srv.SeedCard(e.todo, "Second")
	m := e.model(t, e.board)

	m = press(m, "j")
	if m.sel.CardID != second {
		t.Fatalf("expected j to focus the second card, got %+v", m.sel)
	}
	m.showDetail = true
	m.captureState()

	st := m.state
	if st.View != "board" || st.BoardID != e.board || st.FocusListID != e.todo || st.FocusCardID != second || !st.ShowDetail {
		t.Fatalf("unexpected captured state: %+v", st)
	}

	dir := t.TempDir()
	if err := store.SaveTUIState(dir, st); err != nil {
		t.Fatalf("save state: %v", err)
	}
	loaded, err := store.LoadTUIState(dir)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	restored := newAppModel(context.Background(), Options{Coordinator: e.co, Client: e.client}, loaded, nil)
	if restored.screen != screenBoard || restored.boardID != e.board || restored.sel.CardID != second || !restored.showDetail {
		t.Fatalf("expected restored board focus, got screen=%v board=%q sel=%+v", restored.screen, restored.boardID, restored.sel)
	}
}
