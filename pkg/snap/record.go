// Package snap defines the archived media record and the per-session cache
// that deduplicates records by ID.
package snap

// MediaKind is the file extension a record downloads as
type MediaKind string

const (
	Video   MediaKind = "mp4"
	Image   MediaKind = "jpg"
	Unknown MediaKind = "UNKNOWN"
)

// UnknownLocation labels records the vendor gave no place name for
const UnknownLocation = "UNKNOWN"

// Record is one discovered snap. Records are created by the archiver's
// parser and never modified afterwards.
type Record struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
	// CreateTime is Unix seconds with millisecond precision
	CreateTime float64   `json:"create_time" yaml:"create_time"`
	Kind       MediaKind `json:"file_type" yaml:"file_type"`
	Location   string    `json:"location" yaml:"location"`
}

// FileName is the name the media is stored under
func (r Record) FileName() string {
	return r.ID + "." + string(r.Kind)
}
