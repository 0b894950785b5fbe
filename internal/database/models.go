package database

import (
	"time"

	"github.com/jackc/pgtype"
)

// SessionRecord describes one exported CPL session
type SessionRecord struct {
	ID              string    `gorm:"primaryKey;column:session_id"`
	Path            string    `gorm:"column:path;not null"`
	Date            time.Time `gorm:"column:acquisition_date;not null"`
	BinWidthSeconds int64     `gorm:"column:bin_width_seconds;not null"`
	Profiles        int       `gorm:"column:profiles;not null"`
	Levels          int       `gorm:"column:levels;not null"`
	Windows         int       `gorm:"column:windows;not null"`
	TrackLengthM    float64   `gorm:"column:track_length_m"`
	ExportedAt      time.Time `gorm:"column:exported_at;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for SessionRecord
func (SessionRecord) TableName() string {
	return "cpl_sessions"
}

// ObservationRecord is one lidar profile position along the track
type ObservationRecord struct {
	SessionID string    `gorm:"primaryKey;column:session_id"`
	Index     int       `gorm:"primaryKey;column:obs_index;autoIncrement:false"`
	Time      time.Time `gorm:"column:time;not null;index"`
	Lon       float64   `gorm:"column:lon"`
	Lat       float64   `gorm:"column:lat"`
	Daylight  bool      `gorm:"column:daylight"`
	Window    int       `gorm:"column:window_index"`
}

// TableName specifies the table name for ObservationRecord
func (ObservationRecord) TableName() string {
	return "cpl_observations"
}

// WindowRecord is one synoptic window with the weights of its members
type WindowRecord struct {
	SessionID string       `gorm:"primaryKey;column:session_id"`
	Index     int          `gorm:"primaryKey;column:window_index;autoIncrement:false"`
	Start     time.Time    `gorm:"column:start_time;not null"`
	End       time.Time    `gorm:"column:end_time;not null"`
	Members   int          `gorm:"column:members;not null"`
	Weights   pgtype.JSONB `gorm:"column:weights;type:jsonb;default:'{}';not null"`
}

// TableName specifies the table name for WindowRecord
func (WindowRecord) TableName() string {
	return "cpl_windows"
}

// MemberWeights is the JSON stored in WindowRecord.Weights. Only members are
// listed; weights of non-members carry no meaning.
type MemberWeights struct {
	Index  []int     `json:"index"`
	Weight []float64 `json:"weight"`
}
