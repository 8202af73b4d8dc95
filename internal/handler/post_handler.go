package handler

import (
	"net/http"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/realtime"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// PostIDInput addresses a post.
type PostIDInput struct {
	PostID string `json:"postId" binding:"required" example:"0b6f3c1e-8d4a-4f3e-9c57-2b1f0d9e6a10"`
}

// CommentInput is the body of a new comment.
type CommentInput struct {
	Text string `json:"text" example:"Nice shot!"`
}

// endregion

// region --- Posts ---

// GetFeed godoc
// @Summary      Get the feed
// @Description  Lists the caller's posts and their friends' posts, newest first.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        type   query     string  false  "Content type substring (image, video, ...) or all" default(all)
// @Param        page   query     int     false  "Page number" default(1)
// @Param        limit  query     int     false  "Items per page" default(10)
// @Success      200    {object}  PaginatedResponse[models.PostView]
// @Failure      401    {object}  ErrorResponse
// @Router       /api/posts [get]
func (h *Handler) GetFeed(c *gin.Context) {
	page, limit, p := Paginate(c)

	posts, err := h.Posts.Feed(c.Request.Context(), currentUser(c), c.DefaultQuery("type", "all"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(posts, len(posts), page, limit))
}

// CreatePost godoc
// @Summary      Create a post
// @Description  Uploads a media file and publishes it as a post.
// @Tags         posts
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Media file"
// @Success      201   {object}  models.PostView
// @Failure      400   {object}  ErrorResponse "Missing, empty, oversized or unsupported file"
// @Failure      499   {object}  ErrorResponse "Client went away"
// @Failure      504   {object}  ErrorResponse "Upload timed out"
// @Router       /api/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	fh, f, err := formFile(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	post, err := h.Posts.Create(c.Request.Context(), currentUser(c), fh.Filename, fh.Size, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetPost godoc
// @Summary      Get a post
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  models.PostView
// @Failure      404  {object}  ErrorResponse
// @Router       /api/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.Posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// endregion

// region --- Comments ---

// GetComments godoc
// @Summary      List comments
// @Description  Returns a post's comments in the order they were added.
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Post ID"
// @Param        page   query     int     false  "Page number" default(1)
// @Param        limit  query     int     false  "Items per page" default(10)
// @Success      200    {object}  PaginatedResponse[models.CommentView]
// @Failure      404    {object}  ErrorResponse
// @Router       /api/posts/{id}/comments [get]
func (h *Handler) GetComments(c *gin.Context) {
	page, limit, p := Paginate(c)

	comments, err := h.Comments.History(c.Request.Context(), c.Param("id"), &p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(comments, len(comments), page, limit))
}

// AddComment godoc
// @Summary      Comment on a post
// @Description  Stores the comment and pushes a commentAdded event to the post's subscribers.
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string        true  "Post ID"
// @Param        input  body      CommentInput  true  "Comment"
// @Success      201    {object}  models.CommentView
// @Failure      400    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Router       /api/posts/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.Pipeline.AddComment(c.Request.Context(), c.Param("id"), currentUser(c), input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// StreamPostEvents godoc
// @Summary      Stream comments of a post
// @Description  Server-sent events carrying commentAdded envelopes for one post.
// @Tags         comments
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id   path  string  true  "Post ID"
// @Success      200
// @Failure      404  {object}  ErrorResponse
// @Router       /api/posts/{id}/events [get]
func (h *Handler) StreamPostEvents(c *gin.Context) {
	postID := c.Param("id")
	if _, err := h.Posts.Get(c.Request.Context(), postID); err != nil {
		respondError(c, err)
		return
	}
	h.Realtime.StreamSSE(c, currentUser(c), realtime.PostTopic(postID))
}

// endregion

// region --- Likes ---

// LikePost godoc
// @Summary      Like a post
// @Tags         likes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      PostIDInput  true  "Post"
// @Success      200    {object}  post.LikeState
// @Failure      404    {object}  ErrorResponse
// @Router       /api/like [post]
func (h *Handler) LikePost(c *gin.Context) {
	var input PostIDInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	state, err := h.Posts.Like(c.Request.Context(), currentUser(c), input.PostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// UnlikePost godoc
// @Summary      Unlike a post
// @Tags         likes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        postId  query     string       false  "Post ID (alternative to the body)"
// @Param        input   body      PostIDInput  false  "Post"
// @Success      200     {object}  post.LikeState
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /api/like [delete]
func (h *Handler) UnlikePost(c *gin.Context) {
	postID := c.Query("postId")
	if postID == "" {
		var input PostIDInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		postID = input.PostID
	}

	state, err := h.Posts.Unlike(c.Request.Context(), currentUser(c), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetLikedPosts godoc
// @Summary      List liked posts
// @Tags         likes
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number" default(1)
// @Param        limit  query     int  false  "Items per page" default(10)
// @Success      200    {object}  PaginatedResponse[models.PostView]
// @Router       /api/like [get]
func (h *Handler) GetLikedPosts(c *gin.Context) {
	page, limit, p := Paginate(c)

	posts, err := h.Posts.Liked(c.Request.Context(), currentUser(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(posts, len(posts), page, limit))
}

// CheckLike godoc
// @Summary      Check like state
// @Description  Reports whether the caller likes a post and how many likes it has.
// @Tags         likes
// @Produce      json
// @Security     BearerAuth
// @Param        postId  query     string  true  "Post ID"
// @Success      200     {object}  post.LikeState
// @Failure      400     {object}  ErrorResponse
// @Router       /api/check [get]
func (h *Handler) CheckLike(c *gin.Context) {
	postID := c.Query("postId")
	if postID == "" {
		respondError(c, apperr.Validation("postId is required"))
		return
	}

	state, err := h.Posts.Check(c.Request.Context(), currentUser(c), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// endregion
