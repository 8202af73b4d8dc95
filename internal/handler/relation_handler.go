package handler

import (
	"net/http"

	"bkpconnect/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SendRequestResponse reports the outcome of a friend request.
type SendRequestResponse struct {
	Status models.SendStatus `json:"status" example:"sent"`
}

// ReconcileResponse reports how many friendships were repaired.
type ReconcileResponse struct {
	Repaired int `json:"repaired"`
}

// region --- Suggestions ---

// RegisterSuggestion godoc
// @Summary      Register for suggestions
// @Description  Adds the caller to the suggestion list. Registering twice keeps the first entry.
// @Tags         suggestions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MessageResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /api/sentreq [post]
func (h *Handler) RegisterSuggestion(c *gin.Context) {
	if err := h.Suggestions.Register(c.Request.Context(), currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "registered"})
}

// GetSuggestions godoc
// @Summary      List friend suggestions
// @Description  Lists users newest first, without the caller and the users the caller dismissed. Dismissed users are dropped after paging, so a page may be short while has_more is true.
// @Tags         suggestions
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number" default(1)
// @Param        limit  query     int  false  "Items per page" default(10)
// @Success      200    {object}  PaginatedResponse[models.Suggestion]
// @Failure      401    {object}  ErrorResponse
// @Router       /api/sentreq [get]
func (h *Handler) GetSuggestions(c *gin.Context) {
	page, limit, p := Paginate(c)

	res, err := h.Suggestions.List(c.Request.Context(), currentUser(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(res.Suggestions, res.Scanned, page, limit))
}

// DismissSuggestion godoc
// @Summary      Dismiss a suggestion
// @Description  Hides the two users from each other's suggestions.
// @Tags         suggestions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      UserIDInput  true  "User to dismiss"
// @Success      200    {object}  MessageResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Router       /api/delsentreq [post]
func (h *Handler) DismissSuggestion(c *gin.Context) {
	var input UserIDInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.Relations.Dismiss(c.Request.Context(), currentUser(c), input.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "dismissed"})
}

// GetDismissed godoc
// @Summary      List dismissed users
// @Description  Returns the ids hidden from the caller's suggestions.
// @Tags         suggestions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   string
// @Failure      401  {object}  ErrorResponse
// @Router       /api/user/delsentreq [get]
func (h *Handler) GetDismissed(c *gin.Context) {
	ids, err := h.Relations.Dismissed(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, ids)
}

// endregion

// region --- Friend Requests ---

// SendRequest godoc
// @Summary      Send a friend request
// @Description  Records a pending request on the target's side and dismisses both users from each other's suggestions. Never creates a friendship.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      UserIDInput  true  "Target user"
// @Success      200    {object}  SendRequestResponse
// @Failure      400    {object}  ErrorResponse "Self request"
// @Failure      404    {object}  ErrorResponse "User not found"
// @Failure      500    {object}  ErrorResponse
// @Router       /api/incomingreq [post]
func (h *Handler) SendRequest(c *gin.Context) {
	var input UserIDInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	status, err := h.Relations.SendRequest(c.Request.Context(), currentUser(c), input.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SendRequestResponse{Status: status})
}

// GetIncoming godoc
// @Summary      List incoming friend requests
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number" default(1)
// @Param        limit  query     int  false  "Items per page" default(10)
// @Success      200    {object}  PaginatedResponse[models.Profile]
// @Failure      401    {object}  ErrorResponse
// @Router       /api/incomingreq [get]
func (h *Handler) GetIncoming(c *gin.Context) {
	page, limit, p := Paginate(c)

	users, err := h.Relations.ListIncoming(c.Request.Context(), currentUser(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(users, len(users), page, limit))
}

// DeclineRequest godoc
// @Summary      Decline a friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "Requester ID"
// @Success      200     {object}  MessageResponse
// @Failure      404     {object}  ErrorResponse "No pending request"
// @Router       /api/incomingreq/{userId} [delete]
func (h *Handler) DeclineRequest(c *gin.Context) {
	if err := h.Relations.DeclineRequest(c.Request.Context(), currentUser(c), c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "friend request declined"})
}

// endregion

// region --- Friends ---

// AcceptRequest godoc
// @Summary      Accept a friend request
// @Description  Creates the friendship on both sides and clears pending requests in both directions. Accepting again is a no-op.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      UserIDInput  true  "Requester"
// @Success      200    {object}  MessageResponse
// @Failure      404    {object}  ErrorResponse "No pending request or user not found"
// @Failure      500    {object}  ErrorResponse "Partially applied; retry converges"
// @Router       /api/friend [post]
func (h *Handler) AcceptRequest(c *gin.Context) {
	var input UserIDInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.Relations.AcceptRequest(c.Request.Context(), currentUser(c), input.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "friend request accepted"})
}

// GetFriends godoc
// @Summary      List friends
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number" default(1)
// @Param        limit  query     int  false  "Items per page" default(10)
// @Success      200    {object}  PaginatedResponse[models.Profile]
// @Failure      401    {object}  ErrorResponse
// @Router       /api/friend [get]
func (h *Handler) GetFriends(c *gin.Context) {
	page, limit, p := Paginate(c)

	users, err := h.Relations.ListFriends(c.Request.Context(), currentUser(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(users, len(users), page, limit))
}

// ReconcileFriends godoc
// @Summary      Repair friendships
// @Description  Re-applies the mirrored writes of every friendship on the caller's side.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ReconcileResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/friend/reconcile [post]
func (h *Handler) ReconcileFriends(c *gin.Context) {
	repaired, err := h.Relations.Reconcile(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReconcileResponse{Repaired: repaired})
}

// endregion
