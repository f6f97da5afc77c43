package leveling

// User is the persistent record for an opted-in user. The existence of a
// row means the user is registered; only registered users accrue points.
type User struct {
	UserID              string `gorm:"primaryKey;column:user_id"`
	LastActionType      Action `gorm:"column:last_action_type"`
	LastActionTimestamp int64  `gorm:"column:last_action_timestamp"`
	Points              int64  `gorm:"column:points"`
	// PersonalBest is part of the schema but nothing updates it yet.
	PersonalBest int64 `gorm:"column:personal_best"`
}

func (User) TableName() string {
	return "users"
}

// Column names handed to the write buffer when marking records dirty.
const (
	ColPoints              = "points"
	ColLastActionType      = "last_action_type"
	ColLastActionTimestamp = "last_action_timestamp"
)
