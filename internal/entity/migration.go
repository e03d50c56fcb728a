package entity

import "time"

// Migration records the versions applied to the database.
type Migration struct {
	Version   int `gorm:"primarykey;autoIncrement:false"`
	CreatedAt time.Time
}
