package localstore

import "time"

// Record is one device document held in the local store.
type Record struct {
	// ID is assigned on first save and never changes.
	ID string `json:"id"`

	// Path is the unique key, a slash-separated pseudo file path
	// such as "Roland/JV-1080.midnam".
	Path string `json:"path"`

	// Document is the raw .midnam/.middev text. The store never parses it.
	Document string `json:"document"`

	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`

	SavedAt   time.Time `json:"savedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Size returns the UTF-8 byte length of the document.
func (r Record) Size() int {
	return len(r.Document)
}

// SaveInput is the payload of Store.Save.
// Manufacturer and Model may be empty.
type SaveInput struct {
	Path         string
	Document     string
	Manufacturer string
	Model        string
}

// SaveResult reports the outcome of Store.Save.
type SaveResult struct {
	ID       string `json:"id"`
	IsUpdate bool   `json:"isUpdate"`
}

// Stats summarises the store contents.
type Stats struct {
	Count int `json:"count"`

	// TotalSizeBytes is the summed byte length of every document. It
	// approximates the storage footprint; indexes and metadata are not counted.
	TotalSizeBytes int64 `json:"totalSizeBytes"`

	DistinctManufacturers int `json:"distinctManufacturers"`
}
