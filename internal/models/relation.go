package models

// RelationKind names one of the per-user relationship sets.
type RelationKind string

const (
	// RelationFriend is one side of a mirrored friend edge.
	RelationFriend RelationKind = "friend"

	// RelationIncoming holds the requester of a pending friend request on the target's side.
	RelationIncoming RelationKind = "incoming"

	// RelationDismissed hides a user from the owner's suggestion list.
	RelationDismissed RelationKind = "dismissed"
)

// Relation describes how "other" appears in "owner"'s relationship sets.
type Relation struct {
	Friend    bool `json:"friend"`
	Incoming  bool `json:"incoming"`
	Dismissed bool `json:"dismissed"`
}

// SendStatus is the outcome of a friend request.
type SendStatus string

const (
	SendStatusSent           SendStatus = "sent"
	SendStatusAlreadyPending SendStatus = "already_pending"
	SendStatusAlreadyFriends SendStatus = "already_friends"
	// SendStatusIncomingPending means the target already sent a request the other way.
	SendStatusIncomingPending SendStatus = "incoming_pending"
)
