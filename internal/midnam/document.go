package midnam

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// DocumentHeader precedes every document built by NewDeviceDocument.
const DocumentHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
	`<!DOCTYPE MIDINameDocument PUBLIC "-//MIDI Manufacturers Association//DTD MIDINameDocument 1.0//EN" "http://www.midi.org/dtds/MIDINameDocument10.dtd">` + "\n\n"

// Defaults used by NewDeviceDocument for empty NewDevice fields.
const (
	DefaultMode     = "Default"
	DefaultNameSet  = "Name Set 1"
	DefaultBank     = "Patches"
	DefaultPatch    = "Default Patch"
	DefaultNoteList = "Drum Kit"
)

// DefaultNotes are the percussion notes of a new device's note list.
var DefaultNotes = []Note{
	{Number: 36, Name: "Kick"},
	{Number: 38, Name: "Snare"},
	{Number: 42, Name: "Closed Hi-Hat"},
}

// NewDevice describes a device created without the remote catalog.
// Empty Manufacturer and Model are accepted and produce a valid but
// anonymous document. Other empty fields take the package defaults.
type NewDevice struct {
	Manufacturer string
	Model        string
	Author       string
	Mode         string
	NameSet      string
	Bank         string
	Patch        string
	NoteList     string
}

type xmlDocument struct {
	XMLName xml.Name          `xml:"MIDINameDocument"`
	Author  string            `xml:"Author"`
	Master  xmlMasterDevNames `xml:"MasterDeviceNames"`
}

type xmlMasterDevNames struct {
	Manufacturer string            `xml:"Manufacturer"`
	Model        string            `xml:"Model"`
	Mode         xmlCustomMode     `xml:"CustomDeviceMode"`
	NameSet      xmlChannelNameSet `xml:"ChannelNameSet"`
	NoteList     xmlNoteNameList   `xml:"NoteNameList"`
}

type xmlCustomMode struct {
	Name    string          `xml:"Name,attr"`
	Assigns []xmlNameAssign `xml:"ChannelNameSetAssignments>ChannelNameSetAssign"`
}

type xmlNameAssign struct {
	Channel string `xml:"Channel,attr"`
	NameSet string `xml:"NameSet,attr"`
}

type xmlChannelNameSet struct {
	Name      string         `xml:"Name,attr"`
	Available []xmlAvailable `xml:"AvailableForChannels>AvailableChannel"`
	Bank      xmlPatchBank   `xml:"PatchBank"`
}

type xmlAvailable struct {
	Channel   string `xml:"Channel,attr"`
	Available string `xml:"Available,attr"`
}

type xmlPatchBank struct {
	Name    string     `xml:"Name,attr"`
	Patches []xmlPatch `xml:"PatchNameList>Patch"`
}

type xmlPatch struct {
	Number        string         `xml:"Number,attr"`
	Name          string         `xml:"Name,attr"`
	ProgramChange string         `xml:"ProgramChange,attr"`
	UsesNoteList  xmlNoteListRef `xml:"UsesNoteNameList"`
}

type xmlNoteListRef struct {
	Name string `xml:"Name,attr"`
}

type xmlNoteNameList struct {
	Name  string    `xml:"Name,attr"`
	Notes []xmlNote `xml:"Note"`
}

type xmlNote struct {
	Number string `xml:"Number,attr"`
	Name   string `xml:"Name,attr"`
}

// NewDeviceDocument builds the smallest useful document for a new device:
// one custom device mode assigning channel 1 to one channel name set, that
// set available on channel 1, one bank holding one patch (number "1",
// program change 0) that uses one note list, and that note list with the
// DefaultNotes. All values are XML escaped.
//
// It is not an inverse of Normalize. Documents with more than one bank or
// patch must be serialized some other way.
//
// Parameters:
//   - d: Device header and names; empty names take the Default values
//
// Returns:
//   - string: Document text, with header, that Normalize reads back
//   - error: Only if XML encoding fails
func NewDeviceDocument(d NewDevice) (string, error) {
	mode := orDefault(d.Mode, DefaultMode)
	nameSet := orDefault(d.NameSet, DefaultNameSet)
	noteList := orDefault(d.NoteList, DefaultNoteList)

	notes := make([]xmlNote, 0, len(DefaultNotes))
	for _, n := range DefaultNotes {
		notes = append(notes, xmlNote{Number: strconv.Itoa(n.Number), Name: n.Name})
	}

	doc := xmlDocument{
		Author: d.Author,
		Master: xmlMasterDevNames{
			Manufacturer: d.Manufacturer,
			Model:        d.Model,
			Mode: xmlCustomMode{
				Name:    mode,
				Assigns: []xmlNameAssign{{Channel: "1", NameSet: nameSet}},
			},
			NameSet: xmlChannelNameSet{
				Name:      nameSet,
				Available: []xmlAvailable{{Channel: "1", Available: "true"}},
				Bank: xmlPatchBank{
					Name: orDefault(d.Bank, DefaultBank),
					Patches: []xmlPatch{{
						Number:        "1",
						Name:          orDefault(d.Patch, DefaultPatch),
						ProgramChange: "0",
						UsesNoteList:  xmlNoteListRef{Name: noteList},
					}},
				},
			},
			NoteList: xmlNoteNameList{Name: noteList, Notes: notes},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "\t")
	if err != nil {
		return "", fmt.Errorf("encoding device document: %w", err)
	}
	return DocumentHeader + string(body) + "\n", nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
