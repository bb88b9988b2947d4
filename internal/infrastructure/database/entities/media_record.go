package entities

import "time"

// MediaRecord is the persisted media metadata row.
type MediaRecord struct {
	ID         string    `gorm:"type:varchar(40);primaryKey"`
	Title      string    `gorm:"type:varchar(200);not null"`
	StorageKey string    `gorm:"type:varchar(255);not null"`
	OwnerID    string    `gorm:"type:varchar(64);index;not null"`
	Status     string    `gorm:"type:varchar(16);index;not null"`
	Progress   int       `gorm:"not null;default:0"`
	MimeType   string    `gorm:"type:varchar(64);not null"`
	Bytes      int64     `gorm:"not null"`
	Sha256     string    `gorm:"type:char(64);index;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (MediaRecord) TableName() string {
	return "media_records"
}
