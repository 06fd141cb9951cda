package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban-cli/internal/api"
	"kanban-cli/internal/apitest"
)

type fixture struct {
	srv    *apitest.Server
	client *api.Client
	owner  string
	board  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	owner := srv.SeedUser("owner@example.com", "pw", "owner")
	board := srv.SeedBoard(owner, "Roadmap")
	c := api.NewClient(srv.BaseURL(), api.WithTokenSource(api.StaticToken(srv.Token(owner))))
	return fixture{srv: srv, client: c, owner: owner, board: board}
}

func TestGetBoard_NormalizesPopulatedOwner(t *testing.T) {
	f := newFixture(t)
	b, err := f.client.GetBoard(context.Background(), f.board)
	require.NoError(t, err)
	assert.Equal(t, f.board, b.ID)
	assert.Equal(t, f.owner, b.Owner)
	assert.Equal(t, []string{f.owner}, b.Members)
	assert.Equal(t, "Roadmap", b.Title)
}

func TestCreateListAndCard_AppendPositions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l1, err := f.client.CreateList(ctx, f.board, " Todo ")
	require.NoError(t, err)
	l2, err := f.client.CreateList(ctx, f.board, "Done")
	require.NoError(t, err)
	assert.Equal(t, "Todo", l1.Title)
	assert.Equal(t, f.board, l1.BoardID)
	assert.Equal(t, 0, l1.Position)
	assert.Equal(t, 1, l2.Position)

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := f.client.CreateCard(ctx, f.board, l1.ID, api.CardFields{Title: "Write docs", DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, l1.ID, c.ListID)
	assert.Equal(t, 0, c.Position)
	require.NotNil(t, c.DueDate)
	assert.True(t, c.DueDate.Equal(due))

	cards, err := f.client.GetCardsByList(ctx, l1.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, c.ID, cards[0].ID)
}

func TestUpdateCard_ClearDueSendsNull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.srv.SeedList(f.board, "Todo")
	due := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	card, err := f.client.CreateCard(ctx, f.board, list, api.CardFields{Title: "x", DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, card.DueDate)

	done := true
	got, err := f.client.UpdateCard(ctx, card.ID, api.CardPatch{ClearDue: true, Completed: &done})
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
	assert.True(t, got.Completed)
}

func TestMoveCard_ServerRenumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.srv.SeedList(f.board, "Todo")
	done := f.srv.SeedList(f.board, "Done")
	a := f.srv.SeedCard(todo, "a")
	b := f.srv.SeedCard(todo, "b")
	f.srv.SeedCard(done, "z")

	moved, err := f.client.MoveCard(ctx, a, api.MoveRequest{TargetListID: done, TargetPosition: 1})
	require.NoError(t, err)
	assert.Equal(t, done, moved.ListID)
	assert.Equal(t, 1, moved.Position)

	rest := f.srv.CardsInList(todo)
	require.Len(t, rest, 1)
	assert.Equal(t, b, rest[0].ID)
	assert.Equal(t, 0, rest[0].Position)
}

func TestErrors_MapStatusToKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.GetBoard(ctx, "000000000000000000000000")
	assert.True(t, errors.Is(err, api.ErrNotFound), "err=%v", err)

	stranger := f.srv.SeedUser("x@example.com", "pw", "x")
	other := api.NewClient(f.srv.BaseURL(), api.WithTokenSource(api.StaticToken(f.srv.Token(stranger))))
	_, err = other.GetBoard(ctx, f.board)
	assert.True(t, errors.Is(err, api.ErrPermission), "err=%v", err)

	_, err = f.client.CreateList(ctx, f.board, "  ")
	assert.True(t, errors.Is(err, api.ErrValidation), "err=%v", err)
	assert.Equal(t, "Title is required", err.Error())

	f.srv.FailNext("POST /cards/{cardID}/move", http.StatusConflict, "stale position")
	_, err = f.client.MoveCard(ctx, "abc", api.MoveRequest{TargetListID: "x"})
	assert.True(t, errors.Is(err, api.ErrConflict), "err=%v", err)
	assert.Equal(t, api.ErrConflict, api.KindOf(err))
}

func TestErrors_MissingToken_IsPermission(t *testing.T) {
	f := newFixture(t)
	anon := api.NewClient(f.srv.BaseURL())
	_, err := anon.ListBoards(context.Background())
	assert.True(t, errors.Is(err, api.ErrPermission), "err=%v", err)
}

func TestErrors_TransportFailure_IsNetwork(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	c := api.NewClient(url, api.WithTimeout(time.Second))
	_, err := c.ListBoards(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNetwork), "err=%v", err)
}

func TestRequireID_NoRequest(t *testing.T) {
	f := newFixture(t)
	before := f.srv.TotalHits()
	_, err := f.client.UpdateCard(context.Background(), " ", api.CardPatch{})
	assert.True(t, errors.Is(err, api.ErrValidation))
	assert.Equal(t, before, f.srv.TotalHits())
}

func TestMembershipAndInvitations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.srv.SeedUser("guest@example.com", "pw", "guest")
	guestClient := api.NewClient(f.srv.BaseURL(), api.WithTokenSource(api.StaticToken(f.srv.Token(guest))))

	_, err := f.client.InviteByEmail(ctx, f.board, "Guest@Example.com")
	require.NoError(t, err)

	invs, err := guestClient.ListInvitations(ctx)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, f.board, invs[0].BoardID)

	require.NoError(t, guestClient.AcceptInvitation(ctx, invs[0].BoardID, invs[0].ID))
	boards, err := guestClient.ListBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.True(t, boards[0].HasMember(guest))

	b, err := guestClient.LeaveBoard(ctx, f.board)
	require.NoError(t, err)
	assert.False(t, b.HasMember(guest))

	_, err = f.client.LeaveBoard(ctx, f.board)
	assert.True(t, errors.Is(err, api.ErrValidation))
}

func TestLabelsCommentsAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.srv.SeedList(f.board, "Todo")
	card := f.srv.SeedCard(list, "Fix login bug")
	f.srv.SeedCard(list, "Write release notes")

	lbl, err := f.client.CreateLabel(ctx, f.board, api.LabelFields{Title: "bug", Color: "#ff0000"})
	require.NoError(t, err)
	require.NoError(t, f.client.AttachLabel(ctx, card, lbl.ID))
	got, _ := f.srv.Card(card)
	assert.Equal(t, []string{lbl.ID}, got.Labels)
	require.NoError(t, f.client.DetachLabel(ctx, card, lbl.ID))
	got, _ = f.srv.Card(card)
	assert.Empty(t, got.Labels)

	cm, err := f.client.CreateComment(ctx, card, "on it")
	require.NoError(t, err)
	assert.Equal(t, f.owner, cm.AuthorID)
	comments, err := f.client.ListComments(ctx, card)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "on it", comments[0].Content)

	page, err := f.client.SearchCards(ctx, api.SearchQuery{Query: "login", BoardID: f.board})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Cards, 1)
	assert.Equal(t, card, page.Cards[0].ID)

	boards, err := f.client.SearchBoards(ctx, api.SearchQuery{Query: "road"})
	require.NoError(t, err)
	assert.Equal(t, 1, boards.Total)
}

func TestAuth_LoginMeUpdate(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	id := srv.SeedUser("me@example.com", "secret", "me")

	anon := api.NewClient(srv.BaseURL())
	_, err := anon.Login(context.Background(), "me@example.com", "wrong")
	assert.True(t, errors.Is(err, api.ErrPermission))

	res, err := anon.Login(context.Background(), "me@example.com", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, id, res.User.ID)

	c := api.NewClient(srv.BaseURL(), api.WithTokenSource(api.StaticToken(res.Token)))
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", me.Email)

	name := "renamed"
	me, err = c.UpdateMe(context.Background(), api.ProfilePatch{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", me.Username)
}
