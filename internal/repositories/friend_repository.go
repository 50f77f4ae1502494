package repositories

import (
	"context"
	"slices"

	"messageapp/internal/models"
	"messageapp/internal/store"
)

// Scripted messages seeded into the direct conversation of two new friends.
const (
	FriendRequestGreeting = "Will you be my friend?"
	FriendRequestReply    = "Of course I will <3"
)

// FriendRepository manages friend requests and friendship edges.
//
// A pair moves from no relation to pending (requester listed in the recipient's
// requests) and from pending either to friends (mutual edges) or back to no
// relation on decline, after which a new request is allowed at once.
type FriendRepository interface {
	SendFriendRequest(ctx context.Context, requesterID, recipientID string) error
	AcceptFriendRequest(ctx context.Context, userID, requesterID string) (models.Conversation, error)
	DeclineFriendRequest(ctx context.Context, userID, requesterID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	Friends(ctx context.Context, userID string) ([]models.PublicUser, error)
	FriendRequests(ctx context.Context, userID string) ([]models.PublicUser, error)
}

// SendFriendRequest records requesterID as pending on recipientID.
func (r *UserRepo) SendFriendRequest(ctx context.Context, requesterID, recipientID string) error {
	if requesterID == recipientID {
		return ErrSelfFriendRequest
	}
	return r.store.Update(ctx, func(snap *store.Snapshot) error {
		requester := userIndex(snap, requesterID)
		recipient := userIndex(snap, recipientID)
		if requester < 0 || recipient < 0 {
			return ErrUserNotFound
		}
		if slices.Contains(snap.Users[recipient].FriendIDs, requesterID) {
			return ErrAlreadyFriends
		}
		if slices.Contains(snap.Users[recipient].FriendRequestUserIDs, requesterID) {
			return ErrRequestPending
		}
		snap.Users[recipient].FriendRequestUserIDs = append(snap.Users[recipient].FriendRequestUserIDs, requesterID)
		return nil
	})
}

// AcceptFriendRequest turns a pending request into a friendship, then opens (or
// reuses) the direct conversation between the two users and seeds it with the
// greeting from the requester and the reply from userID. Everything is one commit.
func (r *UserRepo) AcceptFriendRequest(ctx context.Context, userID, requesterID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.store.Update(ctx, func(snap *store.Snapshot) error {
		user := userIndex(snap, userID)
		requester := userIndex(snap, requesterID)
		if user < 0 || requester < 0 {
			return ErrUserNotFound
		}
		pending := slices.Index(snap.Users[user].FriendRequestUserIDs, requesterID)
		if pending < 0 {
			return ErrNoPendingRequest
		}

		u := &snap.Users[user]
		q := &snap.Users[requester]
		u.FriendRequestUserIDs = slices.Delete(u.FriendRequestUserIDs, pending, pending+1)
		if !slices.Contains(u.FriendIDs, requesterID) {
			u.FriendIDs = append(u.FriendIDs, requesterID)
		}
		if !slices.Contains(q.FriendIDs, userID) {
			q.FriendIDs = append(q.FriendIDs, userID)
		}
		now := r.now()
		u.UpdatedAt = now
		q.UpdatedAt = now

		var err error
		conv, err = createDirect(snap, []string{requesterID, userID}, now)
		if err != nil {
			return err
		}
		appendMessage(snap, models.NewMessage{SenderID: requesterID, ConversationID: conv.ID, Content: FriendRequestGreeting}, now)
		appendMessage(snap, models.NewMessage{SenderID: userID, ConversationID: conv.ID, Content: FriendRequestReply}, now)
		conv = snap.Conversations[conversationIndex(snap, conv.ID)]
		return nil
	})
	return conv, err
}

// DeclineFriendRequest drops a pending request without remembering it.
func (r *UserRepo) DeclineFriendRequest(ctx context.Context, userID, requesterID string) error {
	return r.store.Update(ctx, func(snap *store.Snapshot) error {
		user := userIndex(snap, userID)
		if user < 0 {
			return ErrUserNotFound
		}
		requests, found := removeID(snap.Users[user].FriendRequestUserIDs, requesterID)
		if !found {
			return ErrNoPendingRequest
		}
		snap.Users[user].FriendRequestUserIDs = requests
		snap.Users[user].UpdatedAt = r.now()
		return nil
	})
}

// RemoveFriend deletes the friendship edge in both directions. Only the
// userID -> friendID edge has to exist.
func (r *UserRepo) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return r.store.Update(ctx, func(snap *store.Snapshot) error {
		user := userIndex(snap, userID)
		friend := userIndex(snap, friendID)
		if user < 0 || friend < 0 {
			return ErrUserNotFound
		}
		friends, found := removeID(snap.Users[user].FriendIDs, friendID)
		if !found {
			return ErrNotFriends
		}
		snap.Users[user].FriendIDs = friends
		snap.Users[friend].FriendIDs, _ = removeID(snap.Users[friend].FriendIDs, userID)

		now := r.now()
		snap.Users[user].UpdatedAt = now
		snap.Users[friend].UpdatedAt = now
		return nil
	})
}

// Friends lists the profiles of userID's friends.
func (r *UserRepo) Friends(ctx context.Context, userID string) ([]models.PublicUser, error) {
	var friends []models.PublicUser
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := userIndex(snap, userID)
		if i < 0 {
			return ErrUserNotFound
		}
		friends = publicUsersIn(snap, snap.Users[i].FriendIDs)
		return nil
	})
	return friends, err
}

// FriendRequests lists the profiles of users with a pending request to userID.
func (r *UserRepo) FriendRequests(ctx context.Context, userID string) ([]models.PublicUser, error) {
	var requesters []models.PublicUser
	err := r.store.View(ctx, func(snap *store.Snapshot) error {
		i := userIndex(snap, userID)
		if i < 0 {
			return ErrUserNotFound
		}
		requesters = publicUsersIn(snap, snap.Users[i].FriendRequestUserIDs)
		return nil
	})
	return requesters, err
}
