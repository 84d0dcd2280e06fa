package midnam

// ViewModel is the flat form of a MIDI Name Document used by the editor.
// It is derived from the raw document on every selection and never stored.
type ViewModel struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Author       string `json:"author"`

	PatchLists   []PatchList   `json:"patchLists"`
	NoteLists    []NoteList    `json:"noteLists"`
	ControlLists []ControlList `json:"controlLists"`

	// ActiveControlListName comes from the first channel name set only.
	// Per-bank control list assignments are not tracked.
	ActiveControlListName *string `json:"activeControlListName"`

	DeviceModes []DeviceMode `json:"deviceModes"`
	Warnings    []Warning    `json:"warnings"`
}

// PatchList is one patch bank as exposed under one channel name set.
// A bank referenced by two channel name sets appears as two PatchLists.
type PatchList struct {
	Name string `json:"name"`

	// ChannelNameSet is nil for documents without channel name sets.
	ChannelNameSet    *string            `json:"channelNameSet"`
	AvailableChannels []AvailableChannel `json:"availableChannels"`
	MIDICommands      []MIDICommand      `json:"midiCommands"`
	Patches           []Patch            `json:"patches"`
}

// AvailableChannel marks whether a MIDI channel (1-16) uses a channel name set.
type AvailableChannel struct {
	Channel   int  `json:"channel"`
	Available bool `json:"available"`
}

// MIDICommand is one child of a bank's MIDICommands block, for example a
// bank select ControlChange. Attribute names are lower-cased.
type MIDICommand struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Patch is one program slot.
type Patch struct {
	Name string `json:"name"`

	// Number is the display label, such as "A11". It need not be numeric.
	Number string `json:"number"`

	ProgramChange int     `json:"programChange"`
	NoteListName  *string `json:"noteListName"`
}

// NoteList maps note numbers to names, typically a drum map.
type NoteList struct {
	Name  string `json:"name"`
	Notes []Note `json:"notes"`
}

// Note is one named MIDI note.
type Note struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// ControlList maps controller numbers to names.
type ControlList struct {
	Name     string    `json:"name"`
	Controls []Control `json:"controls"`
}

// Control is one named controller.
type Control struct {
	Type   string `json:"type"`
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// DeviceMode is a CustomDeviceMode with its channel to name set assignments.
type DeviceMode struct {
	Name        string       `json:"name"`
	Assignments []Assignment `json:"assignments"`
}

// Assignment binds a MIDI channel to a channel name set.
type Assignment struct {
	Channel int    `json:"channel"`
	NameSet string `json:"nameSet"`
}

// NoteList returns the note list with the given name, or nil.
func (vm *ViewModel) NoteList(name string) *NoteList {
	for i := range vm.NoteLists {
		if vm.NoteLists[i].Name == name {
			return &vm.NoteLists[i]
		}
	}
	return nil
}

// MissingNoteLists returns note list names referenced by patches that no
// NoteList declares, in first-reference order. Normalize does not reject
// such documents; callers decide how to surface them.
func (vm *ViewModel) MissingNoteLists() []string {
	seen := make(map[string]bool)
	var missing []string
	for _, pl := range vm.PatchLists {
		for _, p := range pl.Patches {
			if p.NoteListName == nil || seen[*p.NoteListName] {
				continue
			}
			seen[*p.NoteListName] = true
			if vm.NoteList(*p.NoteListName) == nil {
				missing = append(missing, *p.NoteListName)
			}
		}
	}
	return missing
}
