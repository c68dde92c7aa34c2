package s3

import (
	"fmt"
	"time"
)

// Document is an exported report stored in the archive bucket
type Document struct {
	ID          string
	Entity      string
	Extension   string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// NewReportDocument names the object after the entity and export time
func NewReportDocument(id, entity, extension, contentType string, data []byte, createdAt time.Time) *Document {
	return &Document{
		ID:          id,
		Entity:      entity,
		Extension:   extension,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   createdAt,
	}
}

// Key is reports/<entity>/<yyyy>/<mm>/<id>.<ext> below the configured prefix
func (d *Document) Key(prefix string) string {
	key := fmt.Sprintf("reports/%s/%s/%s.%s", d.Entity, d.CreatedAt.UTC().Format("2006/01"), d.ID, d.Extension)
	if prefix != "" {
		return prefix + "/" + key
	}
	return key
}
