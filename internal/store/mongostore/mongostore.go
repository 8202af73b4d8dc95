// Package mongostore implements store.Store on MongoDB. Users carry their relationship
// sets as embedded arrays, chats and posts embed their logs, mirroring the document
// layout the clients were built against.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection       = "users"
	postsCollection       = "posts"
	chatsCollection       = "chats"
	suggestionsCollection = "sentreqs"
)

type userDoc struct {
	ID         string    `bson:"_id"`
	Username   string    `bson:"username"`
	Password   string    `bson:"password"`
	ProfilePic string    `bson:"profilePic"`
	Friends    []string  `bson:"friends"`
	Incoming   []string  `bson:"incomingreq"`
	Dismissed  []string  `bson:"delsentreq"`
	Liked      []string  `bson:"liked"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func (d *userDoc) user() *models.User {
	return &models.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.Password,
		ProfilePic:   d.ProfilePic,
		CreatedAt:    d.CreatedAt,
	}
}

type commentDoc struct {
	ID        string    `bson:"_id"`
	Commenter string    `bson:"commenter"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"createdAt"`
}

type postDoc struct {
	ID        string       `bson:"_id"`
	URL       string       `bson:"url"`
	FileType  string       `bson:"filetype"`
	CreatedBy string       `bson:"createdBy"`
	Comments  []commentDoc `bson:"comments"`
	Created   time.Time    `bson:"created"`
}

func (d *postDoc) post() models.Post {
	p := models.Post{
		ID:        d.ID,
		URL:       d.URL,
		FileType:  d.FileType,
		CreatedBy: d.CreatedBy,
		Comments:  make([]models.Comment, 0, len(d.Comments)),
		CreatedAt: d.Created,
	}
	for _, c := range d.Comments {
		p.Comments = append(p.Comments, c.comment())
	}
	return p
}

func (c commentDoc) comment() models.Comment {
	return models.Comment{ID: c.ID, AuthorID: c.Commenter, Text: c.Text, CreatedAt: c.CreatedAt}
}

type messageDoc struct {
	ID        string    `bson:"_id"`
	Admin     string    `bson:"admin"`
	Text      string    `bson:"text,omitempty"`
	FileURL   string    `bson:"fileUrl,omitempty"`
	FileType  string    `bson:"fileType,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

type chatDoc struct {
	RoomID      string       `bson:"roomId"`
	Messages    []messageDoc `bson:"messages"`
	LastMessage *time.Time   `bson:"lastMessage,omitempty"`
	CreatedAt   time.Time    `bson:"createdAt"`
}

type suggestionDoc struct {
	ID        string    `bson:"_id"`
	Profile   string    `bson:"profile"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Store is a MongoDB-backed store.Store.
type Store struct {
	db          *mongo.Database
	users       *mongo.Collection
	posts       *mongo.Collection
	chats       *mongo.Collection
	suggestions *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// New wraps db. Call EnsureIndexes before serving traffic.
func New(db *mongo.Database) *Store {
	return &Store{
		db:          db,
		users:       db.Collection(usersCollection),
		posts:       db.Collection(postsCollection),
		chats:       db.Collection(chatsCollection),
		suggestions: db.Collection(suggestionsCollection),
	}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "liked", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("chats indexes: %w", err)
	}
	if _, err := s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "created", Value: -1}},
	}); err != nil {
		return fmt.Errorf("posts indexes: %w", err)
	}
	if _, err := s.suggestions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("sentreqs indexes: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

// sliceProjection projects one page of an embedded array. A zero limit keeps the rest.
func sliceProjection(field string, page store.Page) bson.M {
	if page.Limit <= 0 {
		if page.Offset == 0 {
			return bson.M{field: 1}
		}
		// $slice needs a count; the upper bound for BSON arrays is far below this.
		return bson.M{field: bson.M{"$slice": bson.A{page.Offset, 1 << 30}}}
	}
	return bson.M{field: bson.M{"$slice": bson.A{page.Offset, page.Limit}}}
}

// region --- Users ---

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	doc := userDoc{
		ID:         u.ID,
		Username:   u.Username,
		Password:   u.PasswordHash,
		ProfilePic: u.ProfilePic,
		Friends:    []string{},
		Incoming:   []string{},
		Dismissed:  []string{},
		Liked:      []string{},
		CreatedAt:  u.CreatedAt,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

var userProjection = bson.M{"username": 1, "password": 1, "profilePic": 1, "createdAt": 1}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter, options.FindOne().SetProjection(userProjection)).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return doc.user(), nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) Profiles(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1, "profilePic": 1}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].user().Profile())
	}
	return out, nil
}

func (s *Store) SetProfilePic(ctx context.Context, id, url string) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"profilePic": url}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// endregion

// region --- Relations ---

func (s *Store) Relation(ctx context.Context, owner, other string) (models.Relation, error) {
	projection := bson.M{
		"friend":    bson.M{"$in": bson.A{other, "$friends"}},
		"incoming":  bson.M{"$in": bson.A{other, "$incomingreq"}},
		"dismissed": bson.M{"$in": bson.A{other, "$delsentreq"}},
	}
	var rel struct {
		Friend    bool `bson:"friend"`
		Incoming  bool `bson:"incoming"`
		Dismissed bool `bson:"dismissed"`
	}
	err := s.users.FindOne(ctx, bson.M{"_id": owner}, options.FindOne().SetProjection(projection)).Decode(&rel)
	if err != nil {
		return models.Relation{}, notFound(err)
	}
	return models.Relation{Friend: rel.Friend, Incoming: rel.Incoming, Dismissed: rel.Dismissed}, nil
}

// updateSet applies op ($addToSet or $pull) of value on one of owner's arrays and reports
// whether the document changed.
func (s *Store) updateSet(ctx context.Context, owner, op, field, value string) (bool, error) {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": owner}, bson.M{op: bson.M{field: value}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, store.ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) AddFriend(ctx context.Context, owner, friend string) (bool, error) {
	return s.updateSet(ctx, owner, "$addToSet", "friends", friend)
}

func (s *Store) AddIncoming(ctx context.Context, owner, from string) (bool, error) {
	return s.updateSet(ctx, owner, "$addToSet", "incomingreq", from)
}

func (s *Store) RemoveIncoming(ctx context.Context, owner, from string) (bool, error) {
	return s.updateSet(ctx, owner, "$pull", "incomingreq", from)
}

func (s *Store) AddDismissed(ctx context.Context, owner, other string) (bool, error) {
	return s.updateSet(ctx, owner, "$addToSet", "delsentreq", other)
}

func (s *Store) userArray(ctx context.Context, owner, field string, page store.Page) ([]string, error) {
	projection := sliceProjection(field, page)
	var raw bson.M
	err := s.users.FindOne(ctx, bson.M{"_id": owner}, options.FindOne().SetProjection(projection)).Decode(&raw)
	if err != nil {
		return nil, notFound(err)
	}
	arr, _ := raw[field].(bson.A)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if id, ok := v.(string); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) Friends(ctx context.Context, owner string, page store.Page) ([]string, error) {
	return s.userArray(ctx, owner, "friends", page)
}

func (s *Store) Incoming(ctx context.Context, owner string, page store.Page) ([]string, error) {
	return s.userArray(ctx, owner, "incomingreq", page)
}

func (s *Store) Dismissed(ctx context.Context, owner string) ([]string, error) {
	return s.userArray(ctx, owner, "delsentreq", store.Page{})
}

// endregion

// region --- Likes ---

func (s *Store) AddLike(ctx context.Context, userID, postID string) (bool, error) {
	return s.updateSet(ctx, userID, "$addToSet", "liked", postID)
}

func (s *Store) RemoveLike(ctx context.Context, userID, postID string) (bool, error) {
	return s.updateSet(ctx, userID, "$pull", "liked", postID)
}

func (s *Store) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": userID, "liked": postID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) LikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	return s.userArray(ctx, userID, "liked", store.Page{})
}

func (s *Store) LikeCount(ctx context.Context, postID string) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{"liked": postID})
}

// endregion

// region --- Posts ---

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	doc := postDoc{
		ID:        p.ID,
		URL:       p.URL,
		FileType:  p.FileType,
		CreatedBy: p.CreatedBy,
		Comments:  []commentDoc{},
		Created:   p.CreatedAt,
	}
	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) PostByID(ctx context.Context, id string) (*models.Post, error) {
	var doc postDoc
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	p := doc.post()
	return &p, nil
}

func (s *Store) findPosts(ctx context.Context, filter bson.M, page store.Page) ([]models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset))
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Post, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].post())
	}
	return out, nil
}

func (s *Store) PostsByAuthors(ctx context.Context, authors []string, typeFilter string, page store.Page) ([]models.Post, error) {
	filter := bson.M{"createdBy": bson.M{"$in": authors}}
	if typeFilter != "" {
		filter["filetype"] = bson.M{"$regex": regexp.QuoteMeta(typeFilter), "$options": "i"}
	}
	return s.findPosts(ctx, filter, page)
}

func (s *Store) PostsByIDs(ctx context.Context, ids []string, page store.Page) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findPosts(ctx, bson.M{"_id": bson.M{"$in": ids}}, page)
}

func (s *Store) AppendComment(ctx context.Context, postID string, c models.Comment) error {
	doc := commentDoc{ID: c.ID, Commenter: c.AuthorID, Text: c.Text, CreatedAt: c.CreatedAt}
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$push": bson.M{"comments": doc}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Comments(ctx context.Context, postID string, page *store.Page) ([]models.Comment, error) {
	p := store.Page{}
	if page != nil {
		p = *page
	}
	var doc postDoc
	err := s.posts.FindOne(ctx, bson.M{"_id": postID},
		options.FindOne().SetProjection(sliceProjection("comments", p))).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	out := make([]models.Comment, 0, len(doc.Comments))
	for _, c := range doc.Comments {
		out = append(out, c.comment())
	}
	return out, nil
}

// endregion

// region --- Rooms ---

func (s *Store) RoomByKey(ctx context.Context, key string) (*models.Room, error) {
	var doc chatDoc
	err := s.chats.FindOne(ctx, bson.M{"roomId": key},
		options.FindOne().SetProjection(bson.M{"messages": 0})).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	return &models.Room{Key: doc.RoomID, CreatedAt: doc.CreatedAt, LastMessage: doc.LastMessage}, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	doc := chatDoc{RoomID: room.Key, Messages: []messageDoc{}, CreatedAt: room.CreatedAt}
	if _, err := s.chats.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, key string, m models.Message) error {
	doc := messageDoc{ID: m.ID, Admin: m.AuthorID, Text: m.Text, FileURL: m.FileURL, FileType: m.FileType, CreatedAt: m.CreatedAt}
	res, err := s.chats.UpdateOne(ctx, bson.M{"roomId": key}, bson.M{
		"$push": bson.M{"messages": doc},
		"$set":  bson.M{"lastMessage": m.CreatedAt},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Messages(ctx context.Context, key string, page *store.Page) ([]models.Message, error) {
	p := store.Page{}
	if page != nil {
		p = *page
	}
	var doc chatDoc
	err := s.chats.FindOne(ctx, bson.M{"roomId": key},
		options.FindOne().SetProjection(sliceProjection("messages", p))).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	out := make([]models.Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		out = append(out, models.Message{
			ID:        m.ID,
			AuthorID:  m.Admin,
			Text:      m.Text,
			FileURL:   m.FileURL,
			FileType:  m.FileType,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// endregion

// region --- Suggestions ---

func (s *Store) RegisterSuggestion(ctx context.Context, e models.SuggestionEntry) error {
	doc := suggestionDoc{ID: e.UserID, Profile: e.UserID, CreatedAt: e.CreatedAt}
	if _, err := s.suggestions.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return nil
}

func (s *Store) Suggestions(ctx context.Context, page store.Page) ([]models.SuggestionEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset))
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	cur, err := s.suggestions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []suggestionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.SuggestionEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.SuggestionEntry{UserID: d.Profile, CreatedAt: d.CreatedAt})
	}
	return out, nil
}

// endregion
