package mutate_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban-cli/internal/api"
	"kanban-cli/internal/apitest"
	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/store"
)

type env struct {
	srv    *apitest.Server
	client *api.Client
	co     *mutate.Coordinator
	owner  string
	board  string
	listA  string
	listB  string
	a1, a2 string
}

// setup seeds list A with cards [a1, a2] and an empty list B, then loads the board.
func setup(t *testing.T, opts ...mutate.Option) env {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	e := env{srv: srv}
	e.owner = srv.SeedUser("owner@example.com", "pw", "owner")
	e.board = srv.SeedBoard(e.owner, "Board")
	e.listA = srv.SeedList(e.board, "A")
	e.listB = srv.SeedList(e.board, "B")
	e.a1 = srv.SeedCard(e.listA, "a1")
	e.a2 = srv.SeedCard(e.listA, "a2")

	e.client = api.NewClient(srv.BaseURL(), api.WithTokenSource(api.StaticToken(srv.Token(e.owner))))
	opts = append([]mutate.Option{mutate.WithActor(func() string { return e.owner })}, opts...)
	e.co = mutate.New(e.client, opts...)
	_, err := e.co.LoadBoard(context.Background(), e.board)
	require.NoError(t, err)
	return e
}

type recorder struct {
	mu     sync.Mutex
	events []mutate.Event
}

func (r *recorder) add(ev mutate.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) phases() []mutate.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mutate.Phase, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Phase)
	}
	return out
}

func positions(cards []model.Card) map[string]int {
	out := map[string]int{}
	for _, c := range cards {
		out[c.ID] = c.Position
	}
	return out
}

func ids(cards []model.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestLoadBoard_HydratesSubtree(t *testing.T) {
	e := setup(t)

	lists := e.co.Store.ListsForBoard(e.board)
	require.Len(t, lists, 2)
	assert.Equal(t, e.listA, lists[0].ID)
	assert.Equal(t, e.listB, lists[1].ID)
	assert.Equal(t, []string{e.a1, e.a2}, ids(e.co.Store.CardsForList(e.listA)))
	assert.Empty(t, e.co.Store.CardsForList(e.listB))

	b, ok := e.co.Store.Board(e.board)
	require.True(t, ok)
	assert.Equal(t, []string{e.owner}, b.Members)
}

func TestLoadBoard_WritesOfflineCache(t *testing.T) {
	cache := store.Cache{Dir: t.TempDir()}
	e := setup(t, mutate.WithCache(cache))

	snap, ok, err := cache.LoadBoard(context.Background(), e.board)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, snap.Lists, 2)
	assert.Len(t, snap.Cards, 2)

	offline := mutate.New(e.client, mutate.WithCache(cache))
	_, ok, err = offline.LoadBoardOffline(context.Background(), e.board)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{e.a1, e.a2}, ids(offline.Store.CardsForList(e.listA)))
}

func TestCreateCard_EmptyTitle_NoWriteNoRemote(t *testing.T) {
	e := setup(t)
	before := e.co.Store.Snapshot()
	hits := e.srv.TotalHits()

	_, err := e.co.CreateCard(context.Background(), e.listA, api.CardFields{Title: "   "})
	require.Error(t, err)
	var verr mutate.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
	assert.True(t, errors.Is(err, api.ErrValidation))

	assert.True(t, before.Equal(e.co.Store.Snapshot()))
	assert.Equal(t, hits, e.srv.TotalHits())
}

func TestCreateList_EmptyTitle_NoWriteNoRemote(t *testing.T) {
	e := setup(t)
	before := e.co.Store.Snapshot()
	_, err := e.co.CreateList(context.Background(), e.board, "")
	assert.True(t, errors.Is(err, api.ErrValidation))
	assert.True(t, before.Equal(e.co.Store.Snapshot()))
	assert.Equal(t, 0, e.srv.Hits("POST /boards/{boardID}/lists"))
}

func TestCreateCard_OptimisticThenReconciled(t *testing.T) {
	e := setup(t)
	rec := &recorder{}
	defer e.co.Subscribe(rec.add)()

	release := e.srv.Gate("POST /boards/{boardID}/lists/{listID}/cards")
	defer release()

	type result struct {
		card model.Card
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c, err := e.co.CreateCard(context.Background(), e.listA, api.CardFields{Title: " a3 "})
		done <- result{c, err}
	}()

	require.Eventually(t, func() bool { return len(e.co.Store.CardsForList(e.listA)) == 3 }, time.Second, 5*time.Millisecond)
	optimistic := e.co.Store.CardsForList(e.listA)[2]
	assert.True(t, mutate.IsTempID(optimistic.ID))
	assert.Equal(t, "a3", optimistic.Title)
	assert.Equal(t, 2, optimistic.Position)
	assert.True(t, e.co.Pending(model.KindCard, optimistic.ID))

	release()
	res := <-done
	require.NoError(t, res.err)
	assert.False(t, mutate.IsTempID(res.card.ID))

	cards := e.co.Store.CardsForList(e.listA)
	assert.Equal(t, []string{e.a1, e.a2, res.card.ID}, ids(cards))
	_, stillThere := e.co.Store.Card(optimistic.ID)
	assert.False(t, stillThere)
	assert.Equal(t, []mutate.Phase{mutate.PhaseApplied, mutate.PhaseConfirmed}, rec.phases())
}

func TestCreateCard_RemoteFailure_RollsBack(t *testing.T) {
	e := setup(t)
	rec := &recorder{}
	defer e.co.Subscribe(rec.add)()
	before := e.co.Store.Snapshot()
	e.srv.FailNext("POST /boards/{boardID}/lists/{listID}/cards", http.StatusForbidden, "You are not a member of this board")

	_, err := e.co.CreateCard(context.Background(), e.listA, api.CardFields{Title: "a3"})
	require.Error(t, err)
	assert.Equal(t, "You are not a member of this board", err.Error())
	assert.True(t, errors.Is(err, api.ErrPermission))
	assert.True(t, before.Equal(e.co.Store.Snapshot()))
	assert.Equal(t, []mutate.Phase{mutate.PhaseApplied, mutate.PhaseRolledBack}, rec.phases())
}

func TestMoveCard_AppendsAndClosesGap(t *testing.T) {
	e := setup(t)

	moved, err := e.co.MoveCard(context.Background(), e.a1, e.listB)
	require.NoError(t, err)
	assert.Equal(t, e.listB, moved.ListID)
	assert.Equal(t, 0, moved.Position)

	assert.Equal(t, map[string]int{e.a2: 0}, positions(e.co.Store.CardsForList(e.listA)))
	assert.Equal(t, map[string]int{e.a1: 0}, positions(e.co.Store.CardsForList(e.listB)))

	server, _ := e.srv.Card(e.a1)
	assert.Equal(t, e.listB, server.ListID)
	assert.Equal(t, 0, server.Position)
}

func TestMoveCard_TargetPositionIsTargetCount(t *testing.T) {
	e := setup(t)
	b1 := e.srv.SeedCard(e.listB, "b1")
	_, err := e.co.LoadBoard(context.Background(), e.board)
	require.NoError(t, err)

	moved, err := e.co.MoveCard(context.Background(), e.a2, e.listB)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Position)
	assert.Equal(t, []string{b1, e.a2}, ids(e.co.Store.CardsForList(e.listB)))
	assert.Equal(t, []string{b1, e.a2}, ids(e.srv.CardsInList(e.listB)))
}

func TestMoveCard_SameList_NoOp(t *testing.T) {
	e := setup(t)
	before := e.co.Store.Snapshot()

	card, err := e.co.MoveCard(context.Background(), e.a1, e.listA)
	require.NoError(t, err)
	assert.Equal(t, e.a1, card.ID)
	assert.True(t, before.Equal(e.co.Store.Snapshot()))
	assert.Equal(t, 0, e.srv.Hits("POST /cards/{cardID}/move"))
}

func TestMoveCard_RemoteFailure_RestoresExactly(t *testing.T) {
	e := setup(t)
	before := e.co.Store.Snapshot()
	e.srv.FailNext("POST /cards/{cardID}/move", http.StatusConflict, "stale position")

	_, err := e.co.MoveCard(context.Background(), e.a1, e.listB)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrConflict))
	assert.Equal(t, "stale position", err.Error())
	assert.True(t, before.Equal(e.co.Store.Snapshot()))
}

func TestMoveCard_OtherBoard_Rejected(t *testing.T) {
	e := setup(t)
	other := e.srv.SeedBoard(e.owner, "Other")
	foreign := e.srv.SeedList(other, "X")
	_, err := e.co.LoadBoard(context.Background(), other)
	require.NoError(t, err)
	before := e.co.Store.Snapshot()

	_, err = e.co.MoveCard(context.Background(), e.a1, foreign)
	var verr mutate.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "targetListId", verr.Field)
	assert.True(t, before.Equal(e.co.Store.Snapshot()))
	assert.Equal(t, 0, e.srv.Hits("POST /cards/{cardID}/move"))
}

func TestMoveCard_UnknownCard_NotFound(t *testing.T) {
	e := setup(t)
	_, err := e.co.MoveCard(context.Background(), "nope", e.listB)
	var nf mutate.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "card", nf.Kind)
	assert.True(t, errors.Is(err, api.ErrNotFound))
}

func TestDeleteList_Cascades(t *testing.T) {
	e := setup(t)

	require.NoError(t, e.co.DeleteList(context.Background(), e.listA))
	_, ok := e.co.Store.List(e.listA)
	assert.False(t, ok)
	_, ok = e.co.Store.Card(e.a1)
	assert.False(t, ok)
	_, ok = e.co.Store.Card(e.a2)
	assert.False(t, ok)

	remaining := e.co.Store.ListsForBoard(e.board)
	require.Len(t, remaining, 1)
	assert.Equal(t, e.listB, remaining[0].ID)
	assert.Equal(t, 0, remaining[0].Position)

	for _, c := range e.co.Store.CardsForBoard(e.board) {
		_, ok := e.co.Store.List(c.ListID)
		assert.True(t, ok, "orphan card %s", c.ID)
	}
}

func TestDeleteList_RemoteFailure_RestoresEverything(t *testing.T) {
	e := setup(t)
	before := e.co.Store.Snapshot()
	e.srv.FailNext("DELETE /boards/{boardID}/lists/{listID}", http.StatusNotFound, "List not found")

	err := e.co.DeleteList(context.Background(), e.listA)
	assert.True(t, errors.Is(err, api.ErrNotFound))
	assert.True(t, before.Equal(e.co.Store.Snapshot()))
}

func TestDeleteCard_ClosesGap(t *testing.T) {
	e := setup(t)
	a3 := e.srv.SeedCard(e.listA, "a3")
	_, err := e.co.LoadBoard(context.Background(), e.board)
	require.NoError(t, err)

	require.NoError(t, e.co.DeleteCard(context.Background(), e.a2))
	assert.Equal(t, map[string]int{e.a1: 0, a3: 1}, positions(e.co.Store.CardsForList(e.listA)))
}

func TestUpdateCard_ServerWinsAndRollback(t *testing.T) {
	e := setup(t)
	title := "renamed"
	desc := "body"
	updated, err := e.co.UpdateCard(context.Background(), e.a1, api.CardPatch{Title: &title, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	stored, _ := e.co.Store.Card(e.a1)
	assert.Equal(t, "body", stored.Description)

	before := e.co.Store.Snapshot()
	e.srv.FailNext("PUT /cards/{cardID}", http.StatusInternalServerError, "boom")
	again := "again"
	_, err = e.co.UpdateCard(context.Background(), e.a1, api.CardPatch{Title: &again})
	assert.Equal(t, "boom", err.Error())
	assert.True(t, before.Equal(e.co.Store.Snapshot()))
}

func TestUpdateCard_EmptyTitle_Rejected(t *testing.T) {
	e := setup(t)
	empty := " "
	_, err := e.co.UpdateCard(context.Background(), e.a1, api.CardPatch{Title: &empty})
	assert.True(t, errors.Is(err, api.ErrValidation))
	assert.Equal(t, 0, e.srv.Hits("PUT /cards/{cardID}"))
}

func TestSameEntity_Serialized(t *testing.T) {
	e := setup(t)
	release := e.srv.Gate("PUT /cards/{cardID}")
	defer release()

	first, second := "first", "second"
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = e.co.UpdateCard(context.Background(), e.a1, api.CardPatch{Title: &first})
	}()
	require.Eventually(t, func() bool { return e.srv.Hits("PUT /cards/{cardID}") == 1 }, time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = e.co.UpdateCard(context.Background(), e.a1, api.CardPatch{Title: &second})
	}()

	// The second update must not apply or send while the first is outstanding.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, e.srv.Hits("PUT /cards/{cardID}"))
	stored, _ := e.co.Store.Card(e.a1)
	assert.Equal(t, "first", stored.Title)

	release()
	wg.Wait()
	assert.Equal(t, 2, e.srv.Hits("PUT /cards/{cardID}"))
	stored, _ = e.co.Store.Card(e.a1)
	assert.Equal(t, "second", stored.Title)
}

func TestDifferentEntities_Concurrent(t *testing.T) {
	e := setup(t)
	release := e.srv.Gate("POST /cards/{cardID}/move")
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := e.co.MoveCard(context.Background(), e.a1, e.listB)
		done <- err
	}()
	require.Eventually(t, func() bool { return e.co.Pending(model.KindCard, e.a1) }, time.Second, 5*time.Millisecond)

	title := "independent"
	_, err := e.co.UpdateCard(context.Background(), e.a2, api.CardPatch{Title: &title})
	require.NoError(t, err)

	release()
	require.NoError(t, <-done)
}

func TestCanceledCaller_StillReconciles(t *testing.T) {
	e := setup(t)
	rec := &recorder{}
	unsubscribe := e.co.Subscribe(rec.add)
	release := e.srv.Gate("POST /cards/{cardID}/move")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.co.MoveCard(ctx, e.a1, e.listB)
		done <- err
	}()
	require.Eventually(t, func() bool { return e.srv.Hits("POST /cards/{cardID}/move") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	unsubscribe()
	release()
	require.NoError(t, <-done)

	card, _ := e.co.Store.Card(e.a1)
	assert.Equal(t, e.listB, card.ListID)
	assert.Equal(t, []mutate.Phase{mutate.PhaseApplied}, rec.phases())
}

type panickyBackend struct {
	api.Backend
}

func (panickyBackend) DeleteCard(context.Context, string) error {
	panic("transport exploded")
}

func TestRemotePanic_BecomesErrorAndRollsBack(t *testing.T) {
	e := setup(t)
	co := mutate.New(panickyBackend{Backend: e.client})
	_, err := co.LoadBoard(context.Background(), e.board)
	require.NoError(t, err)
	before := co.Store.Snapshot()

	err = co.DeleteCard(context.Background(), e.a1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport exploded")
	assert.True(t, before.Equal(co.Store.Snapshot()))
}

func TestPositions_StayContiguous(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	var created []string
	for _, title := range []string{"c1", "c2", "c3"} {
		c, err := e.co.CreateCard(ctx, e.listA, api.CardFields{Title: title})
		require.NoError(t, err)
		created = append(created, c.ID)
	}
	require.NoError(t, e.co.DeleteCard(ctx, created[0]))
	_, err := e.co.MoveCard(ctx, e.a2, e.listB)
	require.NoError(t, err)
	_, err = e.co.MoveCard(ctx, created[2], e.listB)
	require.NoError(t, err)

	for _, listID := range []string{e.listA, e.listB} {
		cards := e.co.Store.CardsForList(listID)
		for i, c := range cards {
			assert.Equal(t, i, c.Position, "list %s card %s", listID, c.ID)
		}
	}
	assert.Equal(t, []string{e.a1, created[1]}, ids(e.co.Store.CardsForList(e.listA)))
	assert.Equal(t, []string{e.a2, created[2]}, ids(e.co.Store.CardsForList(e.listB)))
}

func TestMoveList_ReordersSiblings(t *testing.T) {
	e := setup(t)
	listC, err := e.co.CreateList(context.Background(), e.board, "C")
	require.NoError(t, err)
	assert.Equal(t, 2, listC.Position)

	moved, err := e.co.MoveList(context.Background(), listC.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)

	lists := e.co.Store.ListsForBoard(e.board)
	require.Len(t, lists, 3)
	assert.Equal(t, []string{listC.ID, e.listA, e.listB}, []string{lists[0].ID, lists[1].ID, lists[2].ID})
	for i, l := range lists {
		assert.Equal(t, i, l.Position)
	}
}

func TestUpdateOnTempID_WaitsForCreate(t *testing.T) {
	e := setup(t)
	applied := make(chan string, 4)
	defer e.co.Subscribe(func(ev mutate.Event) {
		if ev.Phase == mutate.PhaseApplied && ev.Op == "create" {
			applied <- ev.TempID
		}
	})()
	release := e.srv.Gate("POST /boards/{boardID}/lists/{listID}/cards")
	defer release()

	created := make(chan model.Card, 1)
	go func() {
		c, _ := e.co.CreateCard(context.Background(), e.listA, api.CardFields{Title: "draft"})
		created <- c
	}()
	tempID := <-applied

	updated := make(chan model.Card, 1)
	go func() {
		title := "final"
		c, _ := e.co.UpdateCard(context.Background(), tempID, api.CardPatch{Title: &title})
		updated <- c
	}()

	release()
	real := <-created
	got := <-updated
	assert.Equal(t, real.ID, got.ID)
	assert.Equal(t, "final", got.Title)
}

func TestRemoveMember_OwnerProtectedLocally(t *testing.T) {
	e := setup(t)
	_, err := e.co.RemoveMember(context.Background(), e.board, e.owner)
	var perr mutate.PermissionError
	require.True(t, errors.As(err, &perr))
	assert.True(t, errors.Is(err, api.ErrPermission))
	assert.Equal(t, 0, e.srv.Hits("POST /boards/{boardID}/remove-member"))
}

func TestMembership_InviteAcceptRemove(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	guest := e.srv.SeedUser("guest@example.com", "pw", "guest")

	_, err := e.co.InviteByEmail(ctx, e.board, "not-an-email")
	assert.True(t, errors.Is(err, api.ErrValidation))

	_, err = e.co.InviteByEmail(ctx, e.board, "guest@example.com")
	require.NoError(t, err)

	guestClient := api.NewClient(e.srv.BaseURL(), api.WithTokenSource(api.StaticToken(e.srv.Token(guest))))
	guestCo := mutate.New(guestClient, mutate.WithActor(func() string { return guest }))
	invs, err := guestCo.ListInvitations(ctx)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	snap, err := guestCo.AcceptInvitation(ctx, invs[0].BoardID, invs[0].ID)
	require.NoError(t, err)
	assert.True(t, snap.Board.HasMember(guest))

	_, err = e.co.LoadBoard(ctx, e.board)
	require.NoError(t, err)
	b, err := e.co.RemoveMember(ctx, e.board, guest)
	require.NoError(t, err)
	assert.False(t, b.HasMember(guest))
}

func TestLeaveBoard_DropsBoardLocally(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	guest := e.srv.SeedUser("guest@example.com", "pw", "guest")
	e.srv.AddMember(e.board, guest)

	guestClient := api.NewClient(e.srv.BaseURL(), api.WithTokenSource(api.StaticToken(e.srv.Token(guest))))
	guestCo := mutate.New(guestClient, mutate.WithActor(func() string { return guest }))
	_, err := guestCo.LoadBoard(ctx, e.board)
	require.NoError(t, err)

	require.NoError(t, guestCo.LeaveBoard(ctx, e.board))
	_, ok := guestCo.Store.Board(e.board)
	assert.False(t, ok)
	assert.Empty(t, guestCo.Store.CardsForBoard(e.board))
}

func TestBoards_CreateRenameDelete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	b, err := e.co.CreateBoard(ctx, "Side project")
	require.NoError(t, err)
	assert.Equal(t, e.owner, b.Owner)

	b, err = e.co.UpdateBoard(ctx, b.ID, "Main project")
	require.NoError(t, err)
	assert.Equal(t, "Main project", b.Title)

	boards, err := e.co.ListBoards(ctx)
	require.NoError(t, err)
	assert.Len(t, boards, 2)

	require.NoError(t, e.co.DeleteBoard(ctx, b.ID))
	_, ok := e.co.Store.Board(b.ID)
	assert.False(t, ok)
	_, ok = e.srv.Board(b.ID)
	assert.False(t, ok)
}

// heldMove parks the move of one card until release is closed, then fails it without
// reaching the backend. Other calls pass through.
type heldMove struct {
	api.Backend
	cardID  string
	entered chan struct{}
	release chan struct{}
}

func (h heldMove) MoveCard(ctx context.Context, cardID string, req api.MoveRequest) (model.Card, error) {
	if cardID != h.cardID {
		return h.Backend.MoveCard(ctx, cardID, req)
	}
	close(h.entered)
	<-h.release
	return model.Card{}, errors.New("stale position")
}

func TestMoveCard_FailedWhileOtherCardArrives_MatchesServerOrder(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	b1 := e.srv.SeedCard(e.listB, "b1")
	held := heldMove{Backend: e.client, cardID: e.a1, entered: make(chan struct{}), release: make(chan struct{})}
	co := mutate.New(held, mutate.WithActor(func() string { return e.owner }))
	_, err := co.LoadBoard(ctx, e.board)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := co.MoveCard(ctx, e.a1, e.listB)
		done <- err
	}()
	<-held.entered

	_, err = co.MoveCard(ctx, b1, e.listA)
	require.NoError(t, err)
	close(held.release)
	require.EqualError(t, <-done, "stale position")

	local := co.Store.CardsForList(e.listA)
	for i, c := range local {
		assert.Equal(t, i, c.Position, "card %s", c.ID)
	}
	assert.Equal(t, []string{e.a1, b1, e.a2}, ids(local))
	assert.Equal(t, ids(e.srv.CardsInList(e.listA)), ids(local))
	assert.Empty(t, co.Store.CardsForList(e.listB))
}

func TestTempID_AfterFailedCreate_NotFound(t *testing.T) {
	e := setup(t)
	var tempID string
	defer e.co.Subscribe(func(ev mutate.Event) {
		if ev.Phase == mutate.PhaseApplied && ev.Op == "create" {
			tempID = ev.TempID
		}
	})()
	e.srv.FailNext("POST /boards/{boardID}/lists/{listID}/cards", http.StatusInternalServerError, "boom")

	_, err := e.co.CreateCard(context.Background(), e.listA, api.CardFields{Title: "lost"})
	require.Error(t, err)
	require.True(t, mutate.IsTempID(tempID))

	title := "renamed"
	_, err = e.co.UpdateCard(context.Background(), tempID, api.CardPatch{Title: &title})
	var nf mutate.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, errors.Is(err, api.ErrNotFound))

	err = e.co.DeleteCard(context.Background(), tempID)
	assert.True(t, errors.Is(err, api.ErrNotFound))
	_, err = e.co.MoveCard(context.Background(), tempID, e.listB)
	assert.True(t, errors.Is(err, api.ErrNotFound))
}

func TestCreateCard_InFlightTempList_NotSavedYet(t *testing.T) {
	e := setup(t)
	applied := make(chan string, 1)
	defer e.co.Subscribe(func(ev mutate.Event) {
		if ev.Phase == mutate.PhaseApplied && ev.Op == "create" && ev.Kind == model.KindList {
			applied <- ev.TempID
		}
	})()
	release := e.srv.Gate("POST /boards/{boardID}/lists")
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := e.co.CreateList(context.Background(), e.board, "C")
		done <- err
	}()
	tempList := <-applied

	_, err := e.co.CreateCard(context.Background(), tempList, api.CardFields{Title: "early"})
	assert.True(t, errors.Is(err, api.ErrValidation))
	assert.Contains(t, err.Error(), "not saved yet")

	release()
	require.NoError(t, <-done)
}

func TestDeleteBoard_NotLoaded_NoAppliedEvent(t *testing.T) {
	e := setup(t)
	rec := &recorder{}
	defer e.co.Subscribe(rec.add)()
	elsewhere := e.srv.SeedBoard(e.owner, "Elsewhere")

	require.NoError(t, e.co.DeleteBoard(context.Background(), elsewhere))
	assert.Equal(t, []mutate.Phase{mutate.PhaseConfirmed}, rec.phases())

	other := e.srv.SeedBoard(e.owner, "Other")
	e.srv.FailNext("DELETE /boards/{boardID}", http.StatusInternalServerError, "boom")
	require.EqualError(t, e.co.DeleteBoard(context.Background(), other), "boom")
	assert.Equal(t, []mutate.Phase{mutate.PhaseConfirmed}, rec.phases())
}

func TestListMutations_RemoteFailure_RestoresExactly(t *testing.T) {
	cases := []struct {
		name  string
		route string
		run   func(e env) error
	}{
		{"create", "POST /boards/{boardID}/lists", func(e env) error {
			_, err := e.co.CreateList(context.Background(), e.board, "C")
			return err
		}},
		{"rename", "PUT /boards/{boardID}/lists/{listID}", func(e env) error {
			title := "Renamed"
			_, err := e.co.UpdateList(context.Background(), e.listA, api.ListPatch{Title: &title})
			return err
		}},
		{"move", "PUT /boards/{boardID}/lists/{listID}", func(e env) error {
			_, err := e.co.MoveList(context.Background(), e.listB, 0)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := setup(t)
			rec := &recorder{}
			defer e.co.Subscribe(rec.add)()
			before := e.co.Store.Snapshot()
			e.srv.FailNext(tc.route, http.StatusForbidden, "Only the owner can change lists")

			err := tc.run(e)
			require.EqualError(t, err, "Only the owner can change lists")
			assert.True(t, errors.Is(err, api.ErrPermission))
			assert.True(t, before.Equal(e.co.Store.Snapshot()))
			assert.Equal(t, []mutate.Phase{mutate.PhaseApplied, mutate.PhaseRolledBack}, rec.phases())
		})
	}
}
