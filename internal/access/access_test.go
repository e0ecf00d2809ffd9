package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climbing-tracker/internal/domain"
)

type stubFriends struct {
	edges []domain.Friendship
	err   error
}

func (s stubFriends) FriendIDsOf(_ context.Context, userID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var ids []string
	for _, f := range s.edges {
		if f.Accepted() && f.Involves(userID) {
			ids = append(ids, f.Other(userID))
		}
	}
	return ids, nil
}

func (s stubFriends) AreFriends(ctx context.Context, a, b string) (bool, error) {
	ids, err := s.FriendIDsOf(ctx, a)
	if err != nil {
		return false, err
	}
	return NewFriendSet(ids...).Has(b), nil
}

func TestCanViewPrivateRoute(t *testing.T) {
	ctx := context.Background()
	private := domain.Route{ID: "r1", UserID: "bob"}
	public := domain.Route{ID: "r2", UserID: "bob", IsPublic: true}

	tests := []struct {
		name    string
		edges   []domain.Friendship
		route   domain.Route
		visible bool
	}{
		{"stranger private", nil, private, false},
		{"stranger public", nil, public, true},
		{"pending request", []domain.Friendship{{RequesterID: "alice", AddresseeID: "bob", Status: domain.FriendshipPending}}, private, false},
		{"accepted alice asked", []domain.Friendship{{RequesterID: "alice", AddresseeID: "bob", Status: domain.FriendshipAccepted}}, private, true},
		{"accepted bob asked", []domain.Friendship{{RequesterID: "bob", AddresseeID: "alice", Status: domain.FriendshipAccepted}}, private, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			friends, err := LoadFriendSet(ctx, stubFriends{edges: tt.edges}, "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.visible, CanView("alice", friends, tt.route))
		})
	}
}

func TestCanViewOwnAndClimbs(t *testing.T) {
	none := NewFriendSet()
	assert.True(t, CanView("bob", none, domain.Route{UserID: "bob"}))

	climb := domain.Climb{UserID: "bob"}
	assert.False(t, CanView("alice", none, climb))
	assert.True(t, CanView("alice", NewFriendSet("bob"), climb))
}

func TestFriendshipSymmetric(t *testing.T) {
	ctx := context.Background()
	store := stubFriends{edges: []domain.Friendship{{RequesterID: "a", AddresseeID: "b", Status: domain.FriendshipAccepted}}}

	ab, err := store.AreFriends(ctx, "a", "b")
	require.NoError(t, err)
	ba, err := store.AreFriends(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, ab)
	assert.Equal(t, ab, ba)
}

func TestLoadFriendSetError(t *testing.T) {
	boom := errors.New("boom")
	_, err := LoadFriendSet(context.Background(), stubFriends{err: boom}, "a")
	assert.ErrorIs(t, err, boom)
}

func TestRoutePermissions(t *testing.T) {
	loc := domain.Location{ID: "gym", UserID: "owner"}
	route := domain.Route{ID: "r", UserID: "setter", LocationID: "gym"}
	friendsOfOwner := NewFriendSet("owner")

	tests := []struct {
		name   string
		viewer string
		fs     FriendSet
		add    bool
		edit   bool
		delete bool
	}{
		{"route owner", "setter", NewFriendSet(), false, true, true},
		{"location owner", "owner", NewFriendSet(), true, true, true},
		{"friend of location owner", "pal", friendsOfOwner, true, true, false},
		{"stranger", "stranger", NewFriendSet(), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.add, CanAddRoute(tt.viewer, tt.fs, loc))
			assert.Equal(t, tt.edit, CanEditRoute(tt.viewer, tt.fs, route, loc))
			assert.Equal(t, tt.delete, CanDeleteRoute(tt.viewer, route, loc))
		})
	}
}

func TestFilterVisible(t *testing.T) {
	routes := []domain.Route{
		{ID: "mine", UserID: "me"},
		{ID: "public", UserID: "x", IsPublic: true},
		{ID: "friend", UserID: "f"},
		{ID: "hidden", UserID: "x"},
	}
	got := FilterVisible("me", NewFriendSet("f"), routes)

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"mine", "public", "friend"}, ids)
	assert.True(t, CanViewUser("me", NewFriendSet("f"), "f"))
	assert.False(t, CanViewUser("me", NewFriendSet("f"), "x"))
}
