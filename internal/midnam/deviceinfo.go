package midnam

import (
	"fmt"
	"strings"
)

// DeviceKind says whether a document defines a device or extends one.
type DeviceKind string

// Device kinds.
const (
	KindMaster    DeviceKind = "master"
	KindExtending DeviceKind = "extending"
)

// keySeparator joins manufacturer and model in a device key.
const keySeparator = "|"

// DeviceInfo identifies the device a document describes.
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer"`

	// Model is the primary model. Extending documents may list several in Models.
	Model  string   `json:"model"`
	Models []string `json:"models"`

	// FamilyID and MemberID come from the DeviceID element when present.
	FamilyID string `json:"familyId,omitempty"`
	MemberID string `json:"memberId,omitempty"`

	Kind DeviceKind `json:"type"`
}

// Key returns the catalog key of the device.
func (d DeviceInfo) Key() string {
	return DeviceKey(d.Manufacturer, d.Model)
}

// ExtractDeviceInfo reads the manufacturer and model from a document.
//
// A MasterDeviceNames block must hold direct Manufacturer and Model children.
// Without one, an ExtendingDeviceNames block with a Manufacturer and at least
// one Model is used. Anything else returns ErrNoDeviceInfo. A document that
// does not parse returns ErrMalformedDocument.
//
// Returns:
//   - *DeviceInfo: Manufacturer and model, with the first model of an extending block
//   - error: ErrMalformedDocument or ErrNoDeviceInfo
func ExtractDeviceInfo(raw string) (*DeviceInfo, error) {
	root, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	if master := root.find("MasterDeviceNames"); master != nil {
		manufacturer, okM := master.childText("Manufacturer")
		model, okModel := master.childText("Model")
		if !okM || !okModel {
			return nil, fmt.Errorf("%w: MasterDeviceNames lacks Manufacturer or Model", ErrNoDeviceInfo)
		}
		info := &DeviceInfo{
			Manufacturer: manufacturer,
			Model:        model,
			Models:       []string{model},
			Kind:         KindMaster,
		}
		if id := firstChild(master, "DeviceID"); id != nil {
			info.FamilyID = id.attrOr("Family", "")
			info.MemberID = id.attrOr("Member", "")
		}
		return info, nil
	}

	if ext := root.find("ExtendingDeviceNames"); ext != nil {
		manufacturer, ok := ext.childText("Manufacturer")
		if !ok {
			return nil, fmt.Errorf("%w: ExtendingDeviceNames lacks Manufacturer", ErrNoDeviceInfo)
		}
		modelElems := ext.childrenNamed("Model")
		if len(modelElems) == 0 {
			return nil, fmt.Errorf("%w: ExtendingDeviceNames lists no Model", ErrNoDeviceInfo)
		}
		info := &DeviceInfo{
			Manufacturer: manufacturer,
			Model:        strings.TrimSpace(modelElems[0].text.String()),
			Models:       []string{},
			Kind:         KindExtending,
		}
		for _, m := range modelElems {
			if t := strings.TrimSpace(m.text.String()); t != "" {
				info.Models = append(info.Models, t)
			}
		}
		return info, nil
	}

	return nil, fmt.Errorf("%w: no MasterDeviceNames or ExtendingDeviceNames", ErrNoDeviceInfo)
}

func firstChild(e *element, name string) *element {
	if c := e.childrenNamed(name); len(c) > 0 {
		return c[0]
	}
	return nil
}

// DeviceKey returns the catalog key "Manufacturer|Model".
func DeviceKey(manufacturer, model string) string {
	return manufacturer + keySeparator + model
}

// ParseDeviceKey splits a key produced by DeviceKey. It reports false when
// the key has no separator.
func ParseDeviceKey(key string) (manufacturer, model string, ok bool) {
	return strings.Cut(key, keySeparator)
}
