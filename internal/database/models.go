package database

import "time"

// MediaRecord represents one ingested asset in the catalog.
type MediaRecord struct {
	ID                 string    `json:"id"`
	ContentFingerprint string    `json:"contentFingerprint"`
	DirectoryID        *string   `json:"directoryId"` // nil = unfiled
	Name               string    `json:"name"`
	OriginalFileName   string    `json:"originalFileName"`
	Ext                string    `json:"ext"`
	MimeType           string    `json:"mimeType"`
	Width              int       `json:"width"`
	Height             int       `json:"height"`
	Size               int64     `json:"size"`
	Score              int       `json:"score"`
	CreatedAt          time.Time `json:"createdAt"`
	RevisionTime       time.Time `json:"revisionTime"`
	Note               string    `json:"note,omitempty"`
	URL                string    `json:"url"`          // path to the copied original
	ThumbnailURL       string    `json:"thumbnailUrl"` // path to the generated thumbnail
	Palettes           string    `json:"palettes,omitempty"`
	Author             string    `json:"author,omitempty"`
	Comments           string    `json:"comments,omitempty"`
	IsDeleted          bool      `json:"isDeleted"`
	UsageCount         int       `json:"usageCount"`
	PerceptualHash     string    `json:"perceptualHash,omitempty"`
	DurationSeconds    float64   `json:"durationSeconds"`
}

// MediaUpdate is a partial patch for a media record. Nil fields are left
// untouched. Setting ClearDirectory unfiles the record regardless of
// DirectoryID. Every applied patch refreshes the revision timestamp.
type MediaUpdate struct {
	DirectoryID    *string `json:"directoryId"`
	ClearDirectory bool    `json:"clearDirectory"`
	Name           *string `json:"name"`
	Score          *int    `json:"score"`
	Note           *string `json:"note"`
	Author         *string `json:"author"`
	Comments       *string `json:"comments"`
	Palettes       *string `json:"palettes"`
	UsageCount     *int    `json:"usageCount"`
}

// DirectoryRecord represents one folder in the organizational hierarchy.
type DirectoryRecord struct {
	ID        string    `json:"id"`
	ParentID  *string   `json:"parentId"` // nil = root-level node
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
