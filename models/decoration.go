package models

type Decoration struct {
	Base

	Name     string `gorm:"uniqueIndex;not null" json:"name" yaml:"name"`
	Price    int64  `gorm:"not null" json:"price" yaml:"price"`
	ImageURL string `gorm:"type:text" json:"image_url" yaml:"image_url"`
}

// UserDecoration is an ownership grant; Quantity counts purchased units.
type UserDecoration struct {
	Base

	UserID       string `gorm:"type:uuid;not null;uniqueIndex:idx_user_decoration" json:"user_id"`
	DecorationID string `gorm:"type:uuid;not null;uniqueIndex:idx_user_decoration" json:"decoration_id"`
	Quantity     int    `gorm:"not null;default:0" json:"quantity"`

	Decoration Decoration `gorm:"foreignKey:DecorationID" json:"decoration"`
}

// TreeDecoration is one placement; positions are percentages of the tree image.
type TreeDecoration struct {
	Base

	TreeID       string  `gorm:"type:uuid;index;not null" json:"tree_id"`
	DecorationID string  `gorm:"type:uuid;index;not null" json:"decoration_id"`
	UserID       string  `gorm:"type:uuid;index;not null" json:"user_id"`
	XPercent     float64 `json:"x_percent"`
	YPercent     float64 `json:"y_percent"`
}
