package domain

import "time"

// FriendshipStatus is the state of a friend request
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "PENDING"
	FriendshipAccepted FriendshipStatus = "ACCEPTED"
)

// Friendship is stored as a directed request but, once accepted, grants visibility in
// both directions.
type Friendship struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requester_id"`
	AddresseeID string           `json:"addressee_id"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Accepted reports whether the friendship grants visibility.
func (f Friendship) Accepted() bool {
	return f.Status == FriendshipAccepted
}

// Involves reports whether userID is either side of the friendship.
func (f Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Other returns the user on the opposite side from userID.
func (f Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// FriendRequestAction is the addressee's answer to a pending request
type FriendRequestAction string

const (
	FriendRequestAccept FriendRequestAction = "accept"
	FriendRequestReject FriendRequestAction = "reject"
)

// SendFriendRequest represents a request to befriend another user
type SendFriendRequest struct {
	AddresseeID string `json:"addressee_id"`
}

// RespondFriendRequest represents the addressee's answer
type RespondFriendRequest struct {
	Action FriendRequestAction `json:"action"`
}

// Friend is an accepted friend as seen from one side of the friendship
type Friend struct {
	FriendshipID string `json:"friendship_id"`
	User
}
