// Package gormstore implements store.Store on Postgres through gorm.
package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a gorm-backed store.Store. The *gorm.DB must be opened with TranslateError.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps db and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	err := db.AutoMigrate(
		&userRow{},
		&userRelationRow{},
		&postRow{},
		&commentRow{},
		&roomRow{},
		&messageRow{},
		&suggestionRow{},
	)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrConflict
	}
	return err
}

func paged(q *gorm.DB, page store.Page) *gorm.DB {
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	return q
}

// region --- Users ---

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	row := userRow{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		ProfilePic:   u.ProfilePic,
		CreatedAt:    u.CreatedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&row).Error)
}

func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return row.user(), nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	return row.user(), nil
}

func (s *Store) Profiles(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []userRow
	err := s.db.WithContext(ctx).
		Select("id", "username", "profile_pic").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].user().Profile())
	}
	return out, nil
}

func (s *Store) SetProfilePic(ctx context.Context, id, url string) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Update("profile_pic", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) userExists(ctx context.Context, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// endregion

// region --- Relations ---

func (s *Store) Relation(ctx context.Context, owner, other string) (models.Relation, error) {
	if err := s.userExists(ctx, owner); err != nil {
		return models.Relation{}, err
	}
	var kinds []models.RelationKind
	err := s.db.WithContext(ctx).Model(&userRelationRow{}).
		Where("owner_id = ? AND other_id = ?", owner, other).
		Pluck("kind", &kinds).Error
	if err != nil {
		return models.Relation{}, err
	}
	var rel models.Relation
	for _, k := range kinds {
		switch k {
		case models.RelationFriend:
			rel.Friend = true
		case models.RelationIncoming:
			rel.Incoming = true
		case models.RelationDismissed:
			rel.Dismissed = true
		}
	}
	return rel, nil
}

func (s *Store) addMember(ctx context.Context, owner string, kind models.RelationKind, other string) (bool, error) {
	if err := s.userExists(ctx, owner); err != nil {
		return false, err
	}
	row := userRelationRow{OwnerID: owner, Kind: kind, OtherID: other, CreatedAt: time.Now().UTC()}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) removeMember(ctx context.Context, owner string, kind models.RelationKind, other string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND other_id = ?", owner, kind, other).
		Delete(&userRelationRow{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, s.userExists(ctx, owner)
	}
	return true, nil
}

func (s *Store) members(ctx context.Context, owner string, kind models.RelationKind, page store.Page) ([]string, error) {
	if err := s.userExists(ctx, owner); err != nil {
		return nil, err
	}
	ids := []string{}
	q := s.db.WithContext(ctx).Model(&userRelationRow{}).
		Where("owner_id = ? AND kind = ?", owner, kind).
		Order("id")
	if err := paged(q, page).Pluck("other_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) AddFriend(ctx context.Context, owner, friend string) (bool, error) {
	return s.addMember(ctx, owner, models.RelationFriend, friend)
}

func (s *Store) AddIncoming(ctx context.Context, owner, from string) (bool, error) {
	return s.addMember(ctx, owner, models.RelationIncoming, from)
}

func (s *Store) RemoveIncoming(ctx context.Context, owner, from string) (bool, error) {
	return s.removeMember(ctx, owner, models.RelationIncoming, from)
}

func (s *Store) AddDismissed(ctx context.Context, owner, other string) (bool, error) {
	return s.addMember(ctx, owner, models.RelationDismissed, other)
}

func (s *Store) Friends(ctx context.Context, owner string, page store.Page) ([]string, error) {
	return s.members(ctx, owner, models.RelationFriend, page)
}

func (s *Store) Incoming(ctx context.Context, owner string, page store.Page) ([]string, error) {
	return s.members(ctx, owner, models.RelationIncoming, page)
}

func (s *Store) Dismissed(ctx context.Context, owner string) ([]string, error) {
	return s.members(ctx, owner, models.RelationDismissed, store.Page{})
}

// endregion

// region --- Likes ---

func (s *Store) AddLike(ctx context.Context, userID, postID string) (bool, error) {
	return s.addMember(ctx, userID, kindLiked, postID)
}

func (s *Store) RemoveLike(ctx context.Context, userID, postID string) (bool, error) {
	return s.removeMember(ctx, userID, kindLiked, postID)
}

func (s *Store) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&userRelationRow{}).
		Where("owner_id = ? AND kind = ? AND other_id = ?", userID, kindLiked, postID).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) LikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	return s.members(ctx, userID, kindLiked, store.Page{})
}

func (s *Store) LikeCount(ctx context.Context, postID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&userRelationRow{}).
		Where("kind = ? AND other_id = ?", kindLiked, postID).
		Count(&n).Error
	return n, err
}

// endregion

// region --- Posts ---

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	row := postRow{ID: p.ID, URL: p.URL, FileType: p.FileType, CreatedBy: p.CreatedBy, CreatedAt: p.CreatedAt}
	return translate(s.db.WithContext(ctx).Create(&row).Error)
}

// withComments loads the comment logs of rows in one query.
func (s *Store) withComments(ctx context.Context, rows []postRow) ([]models.Post, error) {
	if len(rows) == 0 {
		return []models.Post{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var comments []commentRow
	if err := s.db.WithContext(ctx).Where("post_id IN ?", ids).Order("seq").Find(&comments).Error; err != nil {
		return nil, err
	}
	byPost := make(map[string][]models.Comment, len(rows))
	for i := range comments {
		byPost[comments[i].PostID] = append(byPost[comments[i].PostID], comments[i].comment())
	}

	out := make([]models.Post, 0, len(rows))
	for _, r := range rows {
		c := byPost[r.ID]
		if c == nil {
			c = []models.Comment{}
		}
		out = append(out, models.Post{
			ID:        r.ID,
			URL:       r.URL,
			FileType:  r.FileType,
			CreatedBy: r.CreatedBy,
			Comments:  c,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) PostByID(ctx context.Context, id string) (*models.Post, error) {
	var row postRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	posts, err := s.withComments(ctx, []postRow{row})
	if err != nil {
		return nil, err
	}
	return &posts[0], nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) PostsByAuthors(ctx context.Context, authors []string, typeFilter string, page store.Page) ([]models.Post, error) {
	if len(authors) == 0 {
		return []models.Post{}, nil
	}
	q := s.db.WithContext(ctx).Where("created_by IN ?", authors)
	if typeFilter != "" {
		q = q.Where("LOWER(file_type) LIKE ?", "%"+likeEscaper.Replace(strings.ToLower(typeFilter))+"%")
	}
	var rows []postRow
	if err := paged(q.Order("created_at DESC, id DESC"), page).Find(&rows).Error; err != nil {
		return nil, err
	}
	return s.withComments(ctx, rows)
}

func (s *Store) PostsByIDs(ctx context.Context, ids []string, page store.Page) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	var rows []postRow
	q := s.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at DESC, id DESC")
	if err := paged(q, page).Find(&rows).Error; err != nil {
		return nil, err
	}
	return s.withComments(ctx, rows)
}

func (s *Store) postExists(ctx context.Context, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&postRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AppendComment(ctx context.Context, postID string, c models.Comment) error {
	if err := s.postExists(ctx, postID); err != nil {
		return err
	}
	row := commentRow{CommentID: c.ID, PostID: postID, AuthorID: c.AuthorID, Text: c.Text, CreatedAt: c.CreatedAt}
	return translate(s.db.WithContext(ctx).Create(&row).Error)
}

func (s *Store) Comments(ctx context.Context, postID string, page *store.Page) ([]models.Comment, error) {
	if err := s.postExists(ctx, postID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("seq")
	if page != nil {
		q = paged(q, *page)
	}
	var rows []commentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Comment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].comment())
	}
	return out, nil
}

// endregion

// region --- Rooms ---

func (s *Store) RoomByKey(ctx context.Context, key string) (*models.Room, error) {
	var row roomRow
	if err := s.db.WithContext(ctx).First(&row, "room_key = ?", key).Error; err != nil {
		return nil, translate(err)
	}
	return &models.Room{Key: row.RoomKey, CreatedAt: row.CreatedAt, LastMessage: row.LastMessage}, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	row := roomRow{RoomKey: room.Key, CreatedAt: room.CreatedAt}
	return translate(s.db.WithContext(ctx).Create(&row).Error)
}

// AppendMessage inserts the message and bumps lastMessage in one transaction, the
// relational equivalent of a single-document $push.
func (s *Store) AppendMessage(ctx context.Context, key string, m models.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&roomRow{}).Where("room_key = ?", key).Update("last_message", m.CreatedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		row := messageRow{
			MessageID: m.ID,
			RoomKey:   key,
			AuthorID:  m.AuthorID,
			Text:      m.Text,
			FileURL:   m.FileURL,
			FileType:  m.FileType,
			CreatedAt: m.CreatedAt,
		}
		return translate(tx.Create(&row).Error)
	})
}

func (s *Store) Messages(ctx context.Context, key string, page *store.Page) ([]models.Message, error) {
	if _, err := s.RoomByKey(ctx, key); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("room_key = ?", key).Order("seq")
	if page != nil {
		q = paged(q, *page)
	}
	var rows []messageRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Message{
			ID:        r.MessageID,
			AuthorID:  r.AuthorID,
			Text:      r.Text,
			FileURL:   r.FileURL,
			FileType:  r.FileType,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// endregion

// region --- Suggestions ---

func (s *Store) RegisterSuggestion(ctx context.Context, e models.SuggestionEntry) error {
	row := suggestionRow{UserID: e.UserID, CreatedAt: e.CreatedAt}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Store) Suggestions(ctx context.Context, page store.Page) ([]models.SuggestionEntry, error) {
	var rows []suggestionRow
	q := s.db.WithContext(ctx).Order("created_at DESC, user_id DESC")
	if err := paged(q, page).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.SuggestionEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.SuggestionEntry{UserID: r.UserID, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

// endregion
