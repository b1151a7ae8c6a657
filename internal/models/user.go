package models

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dreamshare/pkg/middleware"
	"dreamshare/pkg/response"
)

const sessionUserKey = "user_id"

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Username     string `json:"username" gorm:"size:150;uniqueIndex"`
	Email        string `json:"email" gorm:"size:254;uniqueIndex"`
	PasswordHash string `json:"-" gorm:"size:128"`
	FirstName    string `json:"firstName" gorm:"size:150"`
	LastName     string `json:"lastName" gorm:"size:150"`
	Bio          string `json:"bio" gorm:"size:500"`
	PhotoURL     string `json:"photoUrl" gorm:"size:500"`

	// FavoriteDreamID points at the dream pinned on the profile.
	FavoriteDreamID *uint `json:"favoriteDreamId" gorm:"index"`

	// Cached counters, maintained on dream save/delete and on
	// friendship changes.
	DreamsCount  int `json:"dreamsCount" gorm:"default:0"`
	FriendsCount int `json:"friendsCount" gorm:"default:0"`

	NotificationEmail bool   `json:"notificationEmail" gorm:"default:true"`
	PrivacyDefault    string `json:"privacyDefault" gorm:"size:16;default:private"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// RegisterUser creates an account after checking username and email
// uniqueness.
func RegisterUser(db *gorm.DB, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	var count int64
	if err := db.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	if err := db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	user := &User{
		Username:          username,
		Email:             email,
		NotificationEmail: true,
		PrivacyDefault:    PrivacyPrivate,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// AuthenticateUser verifies the credentials and returns the user.
func AuthenticateUser(db *gorm.DB, username, password string) (*User, error) {
	var user User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetUserByID fetches a single user.
func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers matches the query against username and email, excluding
// the searching user.
func SearchUsers(db *gorm.DB, query string, excludeID uint, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	var users []User
	err := db.Where("(username LIKE ? OR email LIKE ?) AND id <> ?", pattern, pattern, excludeID).
		Limit(limit).Find(&users).Error
	return users, err
}

// ProfileUpdate carries the editable profile fields. The preference
// fields are pointers so a request that omits them leaves the stored
// values alone.
type ProfileUpdate struct {
	FirstName         string  `json:"firstName"`
	LastName          string  `json:"lastName"`
	Email             string  `json:"email"`
	Bio               string  `json:"bio"`
	PhotoURL          string  `json:"photoUrl"`
	NotificationEmail *bool   `json:"notificationEmail"`
	PrivacyDefault    *string `json:"privacyDefault"`
}

// UpdateProfile applies the editable profile fields.
func UpdateProfile(db *gorm.DB, userID uint, update ProfileUpdate) (*User, error) {
	user, err := GetUserByID(db, userID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(update.Email))
	if email != "" && email != user.Email {
		var count int64
		if err := db.Model(&User{}).Where("email = ? AND id <> ?", email, userID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrEmailTaken
		}
		user.Email = email
	}
	user.FirstName = update.FirstName
	user.LastName = update.LastName
	user.Bio = update.Bio
	user.PhotoURL = update.PhotoURL
	if update.NotificationEmail != nil {
		user.NotificationEmail = *update.NotificationEmail
	}
	if update.PrivacyDefault != nil {
		user.PrivacyDefault = NormalizePrivacy(*update.PrivacyDefault)
	}

	if err := db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password before replacing it.
func ChangePassword(db *gorm.DB, userID uint, current, next string) error {
	user, err := GetUserByID(db, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(current) {
		return ErrInvalidCredentials
	}
	if err := user.SetPassword(next); err != nil {
		return err
	}
	return db.Save(user).Error
}

// SetFavoriteDream pins one of the user's own dreams on their profile.
// A nil dreamID clears the pin.
func SetFavoriteDream(db *gorm.DB, userID uint, dreamID *uint) (*User, error) {
	user, err := GetUserByID(db, userID)
	if err != nil {
		return nil, err
	}
	if dreamID != nil {
		dream, err := GetDream(db, *dreamID)
		if err != nil {
			return nil, err
		}
		if dream.UserID != userID {
			return nil, ErrNotDreamOwner
		}
	}
	user.FavoriteDreamID = dreamID
	if err := db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func adjustDreamsCount(tx *gorm.DB, userID uint, delta int) error {
	return tx.Model(&User{}).Where("id = ?", userID).
		UpdateColumn("dreams_count", gorm.Expr("dreams_count + ?", delta)).Error
}

func adjustFriendsCount(tx *gorm.DB, delta int, userIDs ...uint) error {
	return tx.Model(&User{}).Where("id IN ?", userIDs).
		UpdateColumn("friends_count", gorm.Expr("friends_count + ?", delta)).Error
}

// DeleteAccount removes the user and everything they own. Friends keep
// their accounts, so their cached friend counters are corrected first.
func DeleteAccount(db *gorm.DB, userID uint) error {
	friendIDs, err := FriendIDs(db, userID)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if len(friendIDs) > 0 {
			if err := adjustFriendsCount(tx, -1, friendIDs...); err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&DreamLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&DreamComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sender_id = ? OR receiver_id = ?", userID, userID).Delete(&Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("from_user_id = ? OR to_user_id = ?", userID, userID).Delete(&FriendRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&Dream{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, userID).Error
	})
}

// LoginSession records the authenticated user on the session.
func LoginSession(c *gin.Context, userID uint) error {
	session := sessions.Default(c)
	session.Set(sessionUserKey, userID)
	return session.Save()
}

// LogoutSession clears the session.
func LogoutSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// AuthRequired aborts unauthenticated requests with 401 and loads the
// user onto the context for handlers downstream.
func AuthRequired(c *gin.Context) {
	session := sessions.Default(c)
	raw := session.Get(sessionUserKey)
	userID, ok := raw.(uint)
	if !ok || userID == 0 {
		response.FailWithStatus(c, http.StatusUnauthorized, "authentication required", nil)
		c.Abort()
		return
	}

	db, ok := c.MustGet(middleware.DBKey).(*gorm.DB)
	if !ok {
		response.FailWithStatus(c, http.StatusInternalServerError, "database unavailable", nil)
		c.Abort()
		return
	}
	user, err := GetUserByID(db, userID)
	if err != nil {
		response.FailWithStatus(c, http.StatusUnauthorized, "authentication required", nil)
		c.Abort()
		return
	}

	c.Set("current_user", user)
	c.Next()
}

// CurrentUser returns the user loaded by AuthRequired, or nil.
func CurrentUser(c *gin.Context) *User {
	if v, exists := c.Get("current_user"); exists {
		if user, ok := v.(*User); ok {
			return user
		}
	}
	return nil
}
