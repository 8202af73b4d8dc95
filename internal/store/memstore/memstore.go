// Package memstore is an in-process implementation of store.Store used for tests and
// for running the server without external databases.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/store"
)

type userRecord struct {
	user      models.User
	friends   []string
	incoming  []string
	dismissed []string
	liked     []string
}

type roomRecord struct {
	room     models.Room
	messages []models.Message
}

type postRecord struct {
	post models.Post
	seq  int
}

// Store keeps everything in maps guarded by one RWMutex.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*userRecord
	usernames   map[string]string
	posts       map[string]*postRecord
	postSeq     int
	rooms       map[string]*roomRecord
	suggestions []models.SuggestionEntry
	suggested   map[string]bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:     make(map[string]*userRecord),
		usernames: make(map[string]string),
		posts:     make(map[string]*postRecord),
		rooms:     make(map[string]*roomRecord),
		suggested: make(map[string]bool),
	}
}

func (s *Store) Close(context.Context) error { return nil }

func addUnique(list *[]string, v string) bool {
	for _, x := range *list {
		if x == v {
			return false
		}
	}
	*list = append(*list, v)
	return true
}

func remove(list *[]string, v string) bool {
	for i, x := range *list {
		if x == v {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func window(list []string, page store.Page) []string {
	lo, hi := page.Bounds(len(list))
	out := make([]string, hi-lo)
	copy(out, list[lo:hi])
	return out
}

// region --- Users ---

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[u.Username]; ok {
		return store.ErrConflict
	}
	if _, ok := s.users[u.ID]; ok {
		return store.ErrConflict
	}
	s.users[u.ID] = &userRecord{user: *u}
	s.usernames[u.Username] = u.ID
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := rec.user
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.usernames[username]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.UserByID(ctx, id)
}

func (s *Store) Profiles(_ context.Context, ids []string) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.users[id]; ok {
			out = append(out, rec.user.Profile())
		}
	}
	return out, nil
}

func (s *Store) SetProfilePic(_ context.Context, id, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.user.ProfilePic = url
	return nil
}

// endregion

// region --- Relations ---

func (s *Store) Relation(_ context.Context, owner, other string) (models.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[owner]
	if !ok {
		return models.Relation{}, store.ErrNotFound
	}
	return models.Relation{
		Friend:    contains(rec.friends, other),
		Incoming:  contains(rec.incoming, other),
		Dismissed: contains(rec.dismissed, other),
	}, nil
}

func (s *Store) mutate(owner string, fn func(*userRecord) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[owner]
	if !ok {
		return false, store.ErrNotFound
	}
	return fn(rec), nil
}

func (s *Store) AddFriend(_ context.Context, owner, friend string) (bool, error) {
	return s.mutate(owner, func(r *userRecord) bool { return addUnique(&r.friends, friend) })
}

func (s *Store) AddIncoming(_ context.Context, owner, from string) (bool, error) {
	return s.mutate(owner, func(r *userRecord) bool { return addUnique(&r.incoming, from) })
}

func (s *Store) RemoveIncoming(_ context.Context, owner, from string) (bool, error) {
	return s.mutate(owner, func(r *userRecord) bool { return remove(&r.incoming, from) })
}

func (s *Store) AddDismissed(_ context.Context, owner, other string) (bool, error) {
	return s.mutate(owner, func(r *userRecord) bool { return addUnique(&r.dismissed, other) })
}

func (s *Store) list(owner string, pick func(*userRecord) []string, page store.Page) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[owner]
	if !ok {
		return nil, store.ErrNotFound
	}
	return window(pick(rec), page), nil
}

func (s *Store) Friends(_ context.Context, owner string, page store.Page) ([]string, error) {
	return s.list(owner, func(r *userRecord) []string { return r.friends }, page)
}

func (s *Store) Incoming(_ context.Context, owner string, page store.Page) ([]string, error) {
	return s.list(owner, func(r *userRecord) []string { return r.incoming }, page)
}

func (s *Store) Dismissed(_ context.Context, owner string) ([]string, error) {
	return s.list(owner, func(r *userRecord) []string { return r.dismissed }, store.Page{})
}

// endregion

// region --- Likes ---

func (s *Store) AddLike(_ context.Context, userID, postID string) (bool, error) {
	return s.mutate(userID, func(r *userRecord) bool { return addUnique(&r.liked, postID) })
}

func (s *Store) RemoveLike(_ context.Context, userID, postID string) (bool, error) {
	return s.mutate(userID, func(r *userRecord) bool { return remove(&r.liked, postID) })
}

func (s *Store) HasLiked(_ context.Context, userID, postID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return false, store.ErrNotFound
	}
	return contains(rec.liked, postID), nil
}

func (s *Store) LikedPostIDs(_ context.Context, userID string) ([]string, error) {
	return s.list(userID, func(r *userRecord) []string { return r.liked }, store.Page{})
}

func (s *Store) LikeCount(_ context.Context, postID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, rec := range s.users {
		if contains(rec.liked, postID) {
			n++
		}
	}
	return n, nil
}

// endregion

// region --- Posts ---

func clonePost(p models.Post) models.Post {
	p.Comments = append([]models.Comment{}, p.Comments...)
	return p
}

func (s *Store) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[p.ID]; ok {
		return store.ErrConflict
	}
	s.postSeq++
	s.posts[p.ID] = &postRecord{post: clonePost(*p), seq: s.postSeq}
	return nil
}

func (s *Store) PostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := clonePost(rec.post)
	return &p, nil
}

// newestFirst pages the matching posts ordered by creation time, newest first.
func (s *Store) newestFirst(match func(models.Post) bool, page store.Page) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*postRecord
	for _, rec := range s.posts {
		if match(rec.post) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].post.CreatedAt.Equal(recs[j].post.CreatedAt) {
			return recs[i].post.CreatedAt.After(recs[j].post.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})

	lo, hi := page.Bounds(len(recs))
	out := make([]models.Post, 0, hi-lo)
	for _, rec := range recs[lo:hi] {
		out = append(out, clonePost(rec.post))
	}
	return out
}

func (s *Store) PostsByAuthors(_ context.Context, authors []string, typeFilter string, page store.Page) ([]models.Post, error) {
	typeFilter = strings.ToLower(typeFilter)
	return s.newestFirst(func(p models.Post) bool {
		return contains(authors, p.CreatedBy) && strings.Contains(strings.ToLower(p.FileType), typeFilter)
	}, page), nil
}

func (s *Store) PostsByIDs(_ context.Context, ids []string, page store.Page) ([]models.Post, error) {
	return s.newestFirst(func(p models.Post) bool { return contains(ids, p.ID) }, page), nil
}

func (s *Store) AppendComment(_ context.Context, postID string, c models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	rec.post.Comments = append(rec.post.Comments, c)
	return nil
}

func (s *Store) Comments(_ context.Context, postID string, page *store.Page) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.posts[postID]
	if !ok {
		return nil, store.ErrNotFound
	}
	lo, hi := 0, len(rec.post.Comments)
	if page != nil {
		lo, hi = page.Bounds(len(rec.post.Comments))
	}
	return append([]models.Comment{}, rec.post.Comments[lo:hi]...), nil
}

// endregion

// region --- Rooms ---

func (s *Store) RoomByKey(_ context.Context, key string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.rooms[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	room := rec.room
	return &room, nil
}

func (s *Store) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.Key]; ok {
		return store.ErrConflict
	}
	s.rooms[room.Key] = &roomRecord{room: *room}
	return nil
}

func (s *Store) AppendMessage(_ context.Context, key string, m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rooms[key]
	if !ok {
		return store.ErrNotFound
	}
	rec.messages = append(rec.messages, m)
	at := m.CreatedAt
	rec.room.LastMessage = &at
	return nil
}

func (s *Store) Messages(_ context.Context, key string, page *store.Page) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.rooms[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	lo, hi := 0, len(rec.messages)
	if page != nil {
		lo, hi = page.Bounds(len(rec.messages))
	}
	return append([]models.Message{}, rec.messages[lo:hi]...), nil
}

// endregion

// region --- Suggestions ---

func (s *Store) RegisterSuggestion(_ context.Context, e models.SuggestionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.suggested[e.UserID] {
		return nil
	}
	s.suggested[e.UserID] = true
	s.suggestions = append(s.suggestions, e)
	return nil
}

func (s *Store) Suggestions(_ context.Context, page store.Page) ([]models.SuggestionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Latest registration first, so equal timestamps still list the newer entry first.
	ordered := make([]models.SuggestionEntry, 0, len(s.suggestions))
	for i := len(s.suggestions) - 1; i >= 0; i-- {
		ordered = append(ordered, s.suggestions[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	lo, hi := page.Bounds(len(ordered))
	return ordered[lo:hi], nil
}

// endregion
