package model

import "time"

// ViewEvent records one granted read of a room
type ViewEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	RoomID    string    `json:"room_id" gorm:"size:64;index"`
	IP        string    `json:"ip" gorm:"size:64"`
	UserAgent string    `json:"user_agent" gorm:"size:512"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ViewStreamName     = "ROOM_VIEWS"
	ViewStreamSubject  = "rooms.views"
	ViewConsumerName   = "view-logger"
	ViewStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
