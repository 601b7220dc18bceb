package models

type Facility struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"uniqueIndex;not null"`

	// Relationships
	Tasks []Task `gorm:"foreignKey:FacilityID"`
}
