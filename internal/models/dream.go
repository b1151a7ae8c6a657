package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Privacy levels of a dream.
const (
	PrivacyPrivate     = "private"
	PrivacyFriendsOnly = "friends_only"
	PrivacyPublic      = "public"
)

const minTranscriptionLen = 10

var (
	ErrTranscriptionTooShort = errors.New("transcription must be at least 10 characters")
	ErrDreamNotFound         = errors.New("dream not found")
	ErrNotDreamOwner         = errors.New("dream belongs to another user")
	ErrDreamNotVisible       = errors.New("dream is not visible to this user")
)

type Dream struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	UserID              uint      `json:"userId" gorm:"index"`
	Transcription       string    `json:"transcription" gorm:"type:text"`
	ImprovedPrompt      string    `json:"improvedPrompt" gorm:"size:500"`
	GeneratedImage      string    `json:"generatedImage" gorm:"type:text"` // data URI
	Emotion             string    `json:"emotion" gorm:"size:32"`
	EmotionConfidence   float64   `json:"emotionConfidence"`
	EmotionEmoji        string    `json:"emotionEmoji" gorm:"size:8"`
	EmotionColor        string    `json:"emotionColor" gorm:"size:16"`
	EmotionDistribution string    `json:"-" gorm:"type:text"` // JSON label -> percent
	Privacy             string    `json:"privacy" gorm:"size:16;index"`
	AudioFilename       string    `json:"audioFilename" gorm:"size:255"`
	CreatedAt           time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt           time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// NormalizePrivacy maps unknown values to private.
func NormalizePrivacy(p string) string {
	switch p {
	case PrivacyPrivate, PrivacyFriendsOnly, PrivacyPublic:
		return p
	default:
		return PrivacyPrivate
	}
}

// SetDistribution stores the emotion percentages as JSON.
func (d *Dream) SetDistribution(dist map[string]int) error {
	data, err := json.Marshal(dist)
	if err != nil {
		return err
	}
	d.EmotionDistribution = string(data)
	return nil
}

// Distribution decodes the stored emotion percentages.
func (d *Dream) Distribution() (map[string]int, error) {
	if d.EmotionDistribution == "" {
		return nil, nil
	}
	var dist map[string]int
	if err := json.Unmarshal([]byte(d.EmotionDistribution), &dist); err != nil {
		return nil, err
	}
	return dist, nil
}

// CreateDream persists a dream after validating the transcription.
func CreateDream(db *gorm.DB, dream *Dream) error {
	if len(strings.TrimSpace(dream.Transcription)) < minTranscriptionLen {
		return ErrTranscriptionTooShort
	}
	dream.Privacy = NormalizePrivacy(dream.Privacy)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dream).Error; err != nil {
			return err
		}
		return adjustDreamsCount(tx, dream.UserID, 1)
	})
}

// GetDream fetches a dream by id.
func GetDream(db *gorm.DB, id uint) (*Dream, error) {
	var dream Dream
	if err := db.First(&dream, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDreamNotFound
		}
		return nil, err
	}
	return &dream, nil
}

// ListDreams returns the user's own dreams, newest first.
func ListDreams(db *gorm.DB, userID uint, limit, offset int) ([]Dream, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var dreams []Dream
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&dreams).Error
	return dreams, err
}

// FeedSortPopular orders a feed by like count instead of recency.
const FeedSortPopular = "popular"

// PublicFeed returns public dreams from every user with the author
// preloaded, newest first unless sort asks for the most liked.
func PublicFeed(db *gorm.DB, limit, offset int, sort string) ([]Dream, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := db.Model(&Dream{}).Preload("User").
		Where("dreams.privacy = ?", PrivacyPublic)
	if sort == FeedSortPopular {
		q = q.Select("dreams.*").
			Joins("LEFT JOIN dream_likes ON dream_likes.dream_id = dreams.id").
			Group("dreams.id").
			Order("COUNT(dream_likes.id) DESC, dreams.created_at DESC")
	} else {
		q = q.Order("dreams.created_at DESC")
	}
	var dreams []Dream
	err := q.Limit(limit).Offset(offset).Find(&dreams).Error
	return dreams, err
}

// FriendsFeed returns non-private dreams of the user's friends, newest
// first. An empty friend list yields an empty feed.
func FriendsFeed(db *gorm.DB, userID uint, limit, offset int) ([]Dream, error) {
	friendIDs, err := FriendIDs(db, userID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return []Dream{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var dreams []Dream
	err = db.Preload("User").
		Where("user_id IN ? AND privacy IN ?", friendIDs, []string{PrivacyFriendsOnly, PrivacyPublic}).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&dreams).Error
	return dreams, err
}

// SetDreamPrivacy updates the privacy level of one of the user's own
// dreams. Setting the current value again is a no-op, not an error.
func SetDreamPrivacy(db *gorm.DB, dreamID, userID uint, privacy string) (*Dream, error) {
	dream, err := GetDream(db, dreamID)
	if err != nil {
		return nil, err
	}
	if dream.UserID != userID {
		return nil, ErrNotDreamOwner
	}
	privacy = NormalizePrivacy(privacy)
	if dream.Privacy == privacy {
		return dream, nil
	}
	dream.Privacy = privacy
	if err := db.Save(dream).Error; err != nil {
		return nil, err
	}
	return dream, nil
}

// DeleteDream removes one of the user's own dreams and its likes and
// comments.
func DeleteDream(db *gorm.DB, dreamID, userID uint) error {
	dream, err := GetDream(db, dreamID)
	if err != nil {
		return err
	}
	if dream.UserID != userID {
		return ErrNotDreamOwner
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dream_id = ?", dreamID).Delete(&DreamLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dream_id = ?", dreamID).Delete(&DreamComment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&User{}).Where("favorite_dream_id = ?", dreamID).
			UpdateColumn("favorite_dream_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Dream{}, dreamID).Error; err != nil {
			return err
		}
		return adjustDreamsCount(tx, userID, -1)
	})
}

// DreamVisibleTo checks whether viewer may read the dream. Owners see
// everything; public dreams are open; friends_only needs an accepted
// friendship.
func DreamVisibleTo(db *gorm.DB, dream *Dream, viewerID uint) (bool, error) {
	if dream.UserID == viewerID {
		return true, nil
	}
	switch dream.Privacy {
	case PrivacyPublic:
		return true, nil
	case PrivacyFriendsOnly:
		return AreFriends(db, dream.UserID, viewerID)
	default:
		return false, nil
	}
}

// GetVisibleDream fetches a dream and enforces visibility in one step.
func GetVisibleDream(db *gorm.DB, dreamID, viewerID uint) (*Dream, error) {
	dream, err := GetDream(db, dreamID)
	if err != nil {
		return nil, err
	}
	visible, err := DreamVisibleTo(db, dream, viewerID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrDreamNotVisible
	}
	return dream, nil
}
