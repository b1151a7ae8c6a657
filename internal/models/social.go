package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Friend request states.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

var (
	ErrSelfFriendRequest  = errors.New("cannot send a friend request to yourself")
	ErrRequestExists      = errors.New("friend request already exists")
	ErrAlreadyFriends     = errors.New("users are already friends")
	ErrRequestNotFound    = errors.New("friend request not found")
	ErrRequestNotPending  = errors.New("friend request already handled")
	ErrNotFriends         = errors.New("users are not friends")
	ErrEmptyMessage       = errors.New("message content is empty")
	ErrEmptyComment       = errors.New("comment content is empty")
	ErrNotRequestReceiver = errors.New("only the receiver can respond to a request")
)

type FriendRequest struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FromUserID uint      `json:"fromUserId" gorm:"index"`
	ToUserID   uint      `json:"toUserId" gorm:"index"`
	Status     string    `json:"status" gorm:"size:16;index"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	FromUser User `json:"-" gorm:"foreignKey:FromUserID"`
	ToUser   User `json:"-" gorm:"foreignKey:ToUserID"`
}

type Message struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SenderID   uint      `json:"senderId" gorm:"index"`
	ReceiverID uint      `json:"receiverId" gorm:"index"`
	Content    string    `json:"content" gorm:"type:text"`
	DreamID    *uint     `json:"dreamId,omitempty" gorm:"index"` // set when sharing a dream
	IsRead     bool      `json:"isRead" gorm:"default:false"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
}

type DreamLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	DreamID   uint      `json:"dreamId" gorm:"index:idx_dream_user_like,unique"`
	UserID    uint      `json:"userId" gorm:"index:idx_dream_user_like,unique"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

type DreamComment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	DreamID   uint      `json:"dreamId" gorm:"index"`
	UserID    uint      `json:"userId" gorm:"index"`
	Content   string    `json:"content" gorm:"size:1024"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// AreFriends reports whether an accepted friend request links the two
// users, in either direction.
func AreFriends(db *gorm.DB, a, b uint) (bool, error) {
	var count int64
	err := db.Model(&FriendRequest{}).
		Where("status = ? AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))",
			RequestAccepted, a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// FriendIDs lists the ids of everyone the user is friends with.
func FriendIDs(db *gorm.DB, userID uint) ([]uint, error) {
	var requests []FriendRequest
	err := db.Where("status = ? AND (from_user_id = ? OR to_user_id = ?)",
		RequestAccepted, userID, userID).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(requests))
	for _, r := range requests {
		if r.FromUserID == userID {
			ids = append(ids, r.ToUserID)
		} else {
			ids = append(ids, r.FromUserID)
		}
	}
	return ids, nil
}

// ListFriends returns the full user record of each friend.
func ListFriends(db *gorm.DB, userID uint) ([]User, error) {
	ids, err := FriendIDs(db, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []User{}, nil
	}
	var users []User
	err = db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// SendFriendRequest creates a pending request. A pending request in the
// opposite direction is accepted instead of duplicated.
func SendFriendRequest(db *gorm.DB, fromID, toID uint) (*FriendRequest, error) {
	if fromID == toID {
		return nil, ErrSelfFriendRequest
	}
	if _, err := GetUserByID(db, toID); err != nil {
		return nil, err
	}

	friends, err := AreFriends(db, fromID, toID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	var existing FriendRequest
	err = db.Where("status = ? AND from_user_id = ? AND to_user_id = ?",
		RequestPending, fromID, toID).First(&existing).Error
	if err == nil {
		return nil, ErrRequestExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// If the other user already asked, treat this as an acceptance.
	var reverse FriendRequest
	err = db.Where("status = ? AND from_user_id = ? AND to_user_id = ?",
		RequestPending, toID, fromID).First(&reverse).Error
	if err == nil {
		if err := acceptRequest(db, &reverse); err != nil {
			return nil, err
		}
		return &reverse, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	request := &FriendRequest{FromUserID: fromID, ToUserID: toID, Status: RequestPending}
	if err := db.Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// ListPendingRequests returns requests awaiting the user's answer, with
// the sender preloaded.
func ListPendingRequests(db *gorm.DB, userID uint) ([]FriendRequest, error) {
	var requests []FriendRequest
	err := db.Preload("FromUser").
		Where("to_user_id = ? AND status = ?", userID, RequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// ListSentRequests returns the requests the user sent that are still
// awaiting an answer, newest first.
func ListSentRequests(db *gorm.DB, userID uint) ([]FriendRequest, error) {
	var requests []FriendRequest
	err := db.Preload("ToUser").
		Where("from_user_id = ? AND status = ?", userID, RequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// RespondFriendRequest lets the receiver accept or decline a pending
// request.
func RespondFriendRequest(db *gorm.DB, requestID, userID uint, accept bool) (*FriendRequest, error) {
	var request FriendRequest
	if err := db.First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if request.ToUserID != userID {
		return nil, ErrNotRequestReceiver
	}
	if request.Status != RequestPending {
		return nil, ErrRequestNotPending
	}

	if accept {
		if err := acceptRequest(db, &request); err != nil {
			return nil, err
		}
		return &request, nil
	}
	request.Status = RequestDeclined
	if err := db.Save(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// acceptRequest marks the request accepted and bumps both users'
// cached friend counters in one transaction.
func acceptRequest(db *gorm.DB, request *FriendRequest) error {
	request.Status = RequestAccepted
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(request).Error; err != nil {
			return err
		}
		return adjustFriendsCount(tx, 1, request.FromUserID, request.ToUserID)
	})
}

// RemoveFriend deletes the accepted request linking the two users and
// rolls both friend counters back.
func RemoveFriend(db *gorm.DB, userID, friendID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("status = ? AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))",
			RequestAccepted, userID, friendID, friendID, userID).
			Delete(&FriendRequest{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFriends
		}
		return adjustFriendsCount(tx, -1, userID, friendID)
	})
}

// SendMessage delivers a direct message between friends. dreamID may be
// nil for a plain text message; when set the referenced dream must be
// visible to the receiver.
func SendMessage(db *gorm.DB, senderID, receiverID uint, content string, dreamID *uint) (*Message, error) {
	if strings.TrimSpace(content) == "" && dreamID == nil {
		return nil, ErrEmptyMessage
	}
	friends, err := AreFriends(db, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, ErrNotFriends
	}
	if dreamID != nil {
		if _, err := GetVisibleDream(db, *dreamID, receiverID); err != nil {
			return nil, err
		}
	}

	message := &Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		DreamID:    dreamID,
	}
	if err := db.Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// Conversation returns the message history between two users, oldest
// first, and marks the other side's messages as read.
func Conversation(db *gorm.DB, userID, otherID uint, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var messages []Message
	err := db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, otherID, otherID, userID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, userID, false).
		Update("is_read", true).Error
	return messages, err
}

// UnreadCount reports messages not yet read by the user.
func UnreadCount(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// ToggleLike likes the dream, or removes the like when it exists.
// Returns whether the dream is liked after the call and the new count.
func ToggleLike(db *gorm.DB, dreamID, userID uint) (bool, int64, error) {
	if _, err := GetVisibleDream(db, dreamID, userID); err != nil {
		return false, 0, err
	}

	var like DreamLike
	err := db.Where("dream_id = ? AND user_id = ?", dreamID, userID).First(&like).Error
	liked := false
	switch {
	case err == nil:
		if err := db.Delete(&like).Error; err != nil {
			return false, 0, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&DreamLike{DreamID: dreamID, UserID: userID}).Error; err != nil {
			return false, 0, err
		}
		liked = true
	default:
		return false, 0, err
	}

	count, err := CountLikes(db, dreamID)
	return liked, count, err
}

// CountLikes returns the number of likes on a dream.
func CountLikes(db *gorm.DB, dreamID uint) (int64, error) {
	var count int64
	err := db.Model(&DreamLike{}).Where("dream_id = ?", dreamID).Count(&count).Error
	return count, err
}

// HasLiked reports whether the user already liked the dream.
func HasLiked(db *gorm.DB, dreamID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&DreamLike{}).
		Where("dream_id = ? AND user_id = ?", dreamID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddComment attaches a comment to a dream the user can see.
func AddComment(db *gorm.DB, dreamID, userID uint, content string) (*DreamComment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyComment
	}
	if _, err := GetVisibleDream(db, dreamID, userID); err != nil {
		return nil, err
	}

	comment := &DreamComment{DreamID: dreamID, UserID: userID, Content: content}
	if err := db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns a dream's comments oldest first, with authors
// preloaded.
func ListComments(db *gorm.DB, dreamID, viewerID uint) ([]DreamComment, error) {
	if _, err := GetVisibleDream(db, dreamID, viewerID); err != nil {
		return nil, err
	}
	var comments []DreamComment
	err := db.Preload("User").
		Where("dream_id = ?", dreamID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// AutoMigrate creates or updates every table the application uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Dream{},
		&FriendRequest{},
		&Message{},
		&DreamLike{},
		&DreamComment{},
	)
}
