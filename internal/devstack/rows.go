package devstack

import (
	"time"
)

// Relational row models. The JSON tags are the wire column names the
// client reads and writes; GORM derives matching snake_case columns.

// AccountRow is an auth account. It never crosses the REST surface.
type AccountRow struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AccountRow) TableName() string { return "accounts" }

// ProfileRow mirrors the profiles collection.
type ProfileRow struct {
	ID                 string  `gorm:"primaryKey" json:"id"`
	Username           string  `gorm:"uniqueIndex" json:"username"`
	FullName           *string `json:"full_name,omitempty"`
	Bio                *string `json:"bio,omitempty"`
	AvatarURL          *string `json:"avatar_url,omitempty"`
	IsPrivate          bool    `json:"is_private"`
	MessagePermission  string  `json:"message_permission"`
	ShowStatus         bool    `json:"show_status"`
	AllowNotifications bool    `json:"allow_notifications"`
}

func (ProfileRow) TableName() string { return "profiles" }

// LikeRow is one user-liked-post fact.
type LikeRow struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"index:idx_like_pair,unique" json:"user_id"`
	PostID int64  `gorm:"index:idx_like_pair,unique" json:"post_id"`
}

func (LikeRow) TableName() string { return "likes" }

// FriendshipRow is a directed friend request and its current status.
type FriendshipRow struct {
	ID               int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderUsername   string `gorm:"index" json:"sender_username"`
	ReceiverUsername string `gorm:"index" json:"receiver_username"`
	Status           string `json:"status"`
}

func (FriendshipRow) TableName() string { return "friendships" }

// MessageRow is one direct message.
type MessageRow struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderUsername   string    `gorm:"index" json:"sender_username"`
	ReceiverUsername string    `gorm:"index" json:"receiver_username"`
	Content          *string   `json:"content,omitempty"`
	MediaURL         *string   `json:"media_url,omitempty"`
	Kind             string    `json:"kind"`
	CreatedAt        time.Time `json:"created_at"`
}

func (MessageRow) TableName() string { return "messages" }

// CommentRow is one comment on a post.
type CommentRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64     `gorm:"index" json:"post_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentRow) TableName() string { return "comments" }

// NotificationRow is one activity notice.
type NotificationRow struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"index" json:"user_id"`
	ActorUsername string    `json:"actor_username"`
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

func (NotificationRow) TableName() string { return "notifications" }

// relationalModels lists every row migrated into PostgreSQL.
func relationalModels() []any {
	return []any{
		&AccountRow{},
		&ProfileRow{},
		&LikeRow{},
		&FriendshipRow{},
		&MessageRow{},
		&CommentRow{},
		&NotificationRow{},
	}
}
