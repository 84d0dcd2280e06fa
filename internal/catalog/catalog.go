package catalog

import (
	"maps"
	"slices"
	"time"

	"github.com/nerrad567/midnam-core/internal/localstore"
	"github.com/nerrad567/midnam-core/internal/midnam"
)

// DefaultType is the device type of entries built from local records.
const DefaultType = "Synth"

// File is one document of a catalog device.
type File struct {
	Path     string `json:"path"`
	Size     int64  `json:"size,omitempty"`
	Modified string `json:"modified,omitempty"`

	// FromBrowserStorage marks files held in the local store.
	FromBrowserStorage bool `json:"fromBrowserStorage,omitempty"`
}

// Device is one catalog entry.
type Device struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Type         string `json:"type"`
	Files        []File `json:"files"`

	// FromBrowserStorage marks devices known only from the local store.
	FromBrowserStorage bool `json:"fromBrowserStorage,omitempty"`
}

// Catalog maps device keys ("Manufacturer|Model") to devices.
type Catalog map[string]Device

// Keys returns the device keys in sorted order.
func (c Catalog) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Merge overlays local records on a remote catalog and returns a new
// catalog; neither input is modified. remote may be nil.
//
// A record whose device key is missing remotely becomes a new device
// flagged FromBrowserStorage. A record of a known device adds a file
// flagged FromBrowserStorage; when the device already lists that path the
// existing file is flagged instead of duplicated. The device itself is not
// flagged. Records are visited in the given order,
// so several local files of one device keep that order.
func Merge(remote Catalog, records []localstore.Record) Catalog {
	out := make(Catalog, len(remote)+len(records))
	for key, dev := range remote {
		dev.Files = slices.Clone(dev.Files)
		out[key] = dev
	}

	for _, rec := range records {
		key := midnam.DeviceKey(rec.Manufacturer, rec.Model)
		file := File{
			Path:               rec.Path,
			Size:               int64(rec.Size()),
			Modified:           rec.SavedAt.UTC().Format(time.RFC3339),
			FromBrowserStorage: true,
		}

		dev, ok := out[key]
		if !ok {
			out[key] = Device{
				Manufacturer:       rec.Manufacturer,
				Model:              rec.Model,
				Type:               DefaultType,
				Files:              []File{file},
				FromBrowserStorage: true,
			}
			continue
		}
		if i := slices.IndexFunc(dev.Files, func(f File) bool { return f.Path == rec.Path }); i >= 0 {
			dev.Files[i].FromBrowserStorage = true
		} else {
			dev.Files = append(dev.Files, file)
		}
		out[key] = dev
	}
	return out
}
