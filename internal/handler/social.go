package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dreamshare/internal/models"
	"dreamshare/pkg/response"
	"dreamshare/pkg/ws"
)

func (h *Handlers) notify(userID uint, event string, data interface{}) {
	if h.hub != nil {
		h.hub.Notify(userID, event, data)
	}
}

func (h *Handlers) handleSearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Fail(c, "query parameter q is required", nil)
		return
	}

	user := models.CurrentUser(c)
	users, err := models.SearchUsers(h.db, query, user.ID, 20)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "user search failed", nil)
		return
	}
	response.Success(c, "users", users)
}

func (h *Handlers) handleSendFriendRequest(c *gin.Context) {
	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	request, err := models.SendFriendRequest(h.db, user.ID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSelfFriendRequest),
			errors.Is(err, models.ErrRequestExists),
			errors.Is(err, models.ErrAlreadyFriends):
			response.Fail(c, err.Error(), nil)
		default:
			response.FailWithStatus(c, http.StatusInternalServerError, "friend request failed", nil)
		}
		return
	}

	h.notify(req.UserID, ws.EventFriendRequest, gin.H{
		"request_id": request.ID,
		"from":       user.Username,
	})
	response.Created(c, "friend request sent", request)
}

func (h *Handlers) handleListFriendRequests(c *gin.Context) {
	user := models.CurrentUser(c)
	requests, err := models.ListPendingRequests(h.db, user.ID)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to list requests", nil)
		return
	}

	entries := make([]gin.H, 0, len(requests))
	for _, r := range requests {
		entries = append(entries, gin.H{
			"id":        r.ID,
			"from":      r.FromUser.Username,
			"fromId":    r.FromUserID,
			"createdAt": r.CreatedAt,
		})
	}
	response.Success(c, "pending requests", entries)
}

func (h *Handlers) handleListSentRequests(c *gin.Context) {
	user := models.CurrentUser(c)
	requests, err := models.ListSentRequests(h.db, user.ID)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to list requests", nil)
		return
	}

	entries := make([]gin.H, 0, len(requests))
	for _, r := range requests {
		entries = append(entries, gin.H{
			"id":        r.ID,
			"to":        r.ToUser.Username,
			"toId":      r.ToUserID,
			"createdAt": r.CreatedAt,
		})
	}
	response.Success(c, "sent requests", entries)
}

func (h *Handlers) handleRespondFriendRequest(c *gin.Context) {
	requestID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	request, err := models.RespondFriendRequest(h.db, requestID, user.ID, req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRequestNotFound):
			response.FailWithStatus(c, http.StatusNotFound, err.Error(), nil)
		case errors.Is(err, models.ErrNotRequestReceiver):
			response.FailWithStatus(c, http.StatusForbidden, err.Error(), nil)
		case errors.Is(err, models.ErrRequestNotPending):
			response.Fail(c, err.Error(), nil)
		default:
			response.FailWithStatus(c, http.StatusInternalServerError, "failed to respond", nil)
		}
		return
	}
	response.Success(c, "request "+request.Status, request)
}

func (h *Handlers) handleListFriends(c *gin.Context) {
	user := models.CurrentUser(c)
	friends, err := models.ListFriends(h.db, user.ID)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to list friends", nil)
		return
	}
	response.Success(c, "friends", friends)
}

func (h *Handlers) handleRemoveFriend(c *gin.Context) {
	friendID, ok := idParam(c)
	if !ok {
		return
	}

	user := models.CurrentUser(c)
	if err := models.RemoveFriend(h.db, user.ID, friendID); err != nil {
		if errors.Is(err, models.ErrNotFriends) {
			response.FailWithStatus(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to remove friend", nil)
		return
	}
	response.Success(c, "friend removed", nil)
}

func (h *Handlers) handleConversation(c *gin.Context) {
	otherID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		response.Fail(c, "invalid user id", nil)
		return
	}

	user := models.CurrentUser(c)
	messages, err := models.Conversation(h.db, user.ID, uint(otherID), 0)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to load conversation", nil)
		return
	}
	response.Success(c, "conversation", messages)
}

// handleSendMessage delivers a text message, optionally sharing a dream
// the receiver is allowed to see.
func (h *Handlers) handleSendMessage(c *gin.Context) {
	var req struct {
		ReceiverID uint   `json:"receiver_id"`
		Content    string `json:"content"`
		DreamID    *uint  `json:"dream_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	message, err := models.SendMessage(h.db, user.ID, req.ReceiverID, req.Content, req.DreamID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFriends),
			errors.Is(err, models.ErrEmptyMessage):
			response.Fail(c, err.Error(), nil)
		case errors.Is(err, models.ErrDreamNotFound),
			errors.Is(err, models.ErrDreamNotVisible):
			h.failVisibility(c, err)
		default:
			response.FailWithStatus(c, http.StatusInternalServerError, "failed to send message", nil)
		}
		return
	}

	h.notify(req.ReceiverID, ws.EventNewMessage, message)
	response.Created(c, "message sent", message)
}

func (h *Handlers) handleUnreadCount(c *gin.Context) {
	user := models.CurrentUser(c)
	count, err := models.UnreadCount(h.db, user.ID)
	if err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "failed to count messages", nil)
		return
	}
	response.Success(c, "unread count", gin.H{"unread": count})
}

func (h *Handlers) handleToggleLike(c *gin.Context) {
	dreamID, ok := idParam(c)
	if !ok {
		return
	}

	user := models.CurrentUser(c)
	liked, total, err := models.ToggleLike(h.db, dreamID, user.ID)
	if err != nil {
		h.failVisibility(c, err)
		return
	}

	if liked {
		if record, err := models.GetDream(h.db, dreamID); err == nil && record.UserID != user.ID {
			h.notify(record.UserID, ws.EventDreamLiked, gin.H{
				"dream_id": dreamID,
				"by":       user.Username,
			})
		}
	}
	response.Success(c, "like toggled", gin.H{
		"liked":       liked,
		"total_likes": total,
	})
}

func (h *Handlers) handleListComments(c *gin.Context) {
	dreamID, ok := idParam(c)
	if !ok {
		return
	}

	user := models.CurrentUser(c)
	comments, err := models.ListComments(h.db, dreamID, user.ID)
	if err != nil {
		h.failVisibility(c, err)
		return
	}

	entries := make([]gin.H, 0, len(comments))
	for _, comment := range comments {
		entries = append(entries, gin.H{
			"id":        comment.ID,
			"author":    comment.User.Username,
			"content":   comment.Content,
			"createdAt": comment.CreatedAt,
		})
	}
	response.Success(c, "comments", entries)
}

func (h *Handlers) handleAddComment(c *gin.Context) {
	dreamID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	comment, err := models.AddComment(h.db, dreamID, user.ID, req.Content)
	if err != nil {
		if errors.Is(err, models.ErrEmptyComment) {
			response.Fail(c, err.Error(), nil)
			return
		}
		h.failVisibility(c, err)
		return
	}

	if record, err := models.GetDream(h.db, dreamID); err == nil && record.UserID != user.ID {
		h.notify(record.UserID, ws.EventDreamComment, gin.H{
			"dream_id": dreamID,
			"by":       user.Username,
		})
	}
	response.Created(c, "comment added", comment)
}
