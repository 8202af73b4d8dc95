package handler

import (
	"net/http"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// SignupInput defines the structure for user registration.
type SignupInput struct {
	Username string `json:"username" binding:"required,min=3,max=32" example:"testuser"`
	Password string `json:"password" binding:"required,min=6" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Username string `json:"username" binding:"required" example:"testuser"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// PublicUserResponse defines the structure for a user's public profile.
// The relation fields are only present when an authenticated viewer looks at someone else.
type PublicUserResponse struct {
	models.Profile
	RelationToMe *models.Relation `json:"relation_to_me,omitempty"`
	MeToRelation *models.Relation `json:"me_to_relation,omitempty"`
}

// endregion

// region --- Auth Handlers ---

// Signup godoc
// @Summary      Register a new user
// @Description  Creates a new user, adds them to the suggestion list and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body SignupInput true "Registration Info"
// @Success      201  {object}  account.Session
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.Accounts.Signup(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Login godoc
// @Summary      Log in a user
// @Description  Authenticates a user with username and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  account.Session
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.Accounts.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// endregion

// region --- User Handlers ---

// GetUserProfile godoc
// @Summary      Get a user's profile
// @Description  Returns a public profile. With a token and another user's id the relationship in both directions is included. Without userId the caller's own profile is returned.
// @Tags         users
// @Produce      json
// @Param        userId  query     string  false  "User ID (defaults to the caller)"
// @Success      200     {object}  PublicUserResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /api/userprofile [get]
func (h *Handler) GetUserProfile(c *gin.Context) {
	viewer := currentUser(c)
	target := c.Query("userId")
	if target == "" {
		target = viewer
	}
	if target == "" {
		respondError(c, apperr.Validation("userId is required"))
		return
	}

	ctx := c.Request.Context()
	p, err := h.Accounts.Profile(ctx, target)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := PublicUserResponse{Profile: *p}
	if viewer != "" && viewer != target {
		mine, theirs, err := h.Relations.RelationTo(ctx, viewer, target)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.MeToRelation = &mine
		resp.RelationToMe = &theirs
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateAvatar godoc
// @Summary      Update profile picture
// @Description  Uploads an image and makes it the caller's profile picture.
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Image file"
// @Success      200   {object}  models.Profile
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      504   {object}  ErrorResponse "Upload timed out"
// @Router       /api/user [post]
func (h *Handler) UpdateAvatar(c *gin.Context) {
	fh, f, err := formFile(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	p, err := h.Accounts.UpdateAvatar(c.Request.Context(), currentUser(c), fh.Filename, fh.Size, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetPostedByUser godoc
// @Summary      List a user's posts
// @Description  Lists the posts created by a user, newest first. Without userId the caller's posts are listed.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        userId  query     string  false  "User ID (defaults to the caller)"
// @Param        page    query     int     false  "Page number" default(1)
// @Param        limit   query     int     false  "Items per page" default(10)
// @Success      200     {object}  PaginatedResponse[models.PostView]
// @Failure      401     {object}  ErrorResponse
// @Router       /api/userprofile/posted [get]
func (h *Handler) GetPostedByUser(c *gin.Context) {
	target := c.DefaultQuery("userId", currentUser(c))
	page, limit, p := Paginate(c)

	posts, err := h.Posts.ByAuthor(c.Request.Context(), target, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(posts, len(posts), page, limit))
}

// endregion
