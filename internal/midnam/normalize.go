package midnam

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// RootElement is the required root of a MIDI Name Document.
const RootElement = "MIDINameDocument"

// Normalize turns a raw MIDI Name Document into a ViewModel.
//
// It is pure and deterministic. A document that is not well-formed, or whose
// root is not MIDINameDocument, yields a nil ViewModel and an error wrapping
// ErrMalformedDocument; partial results are never returned. A well-formed
// document with no banks or lists yields an empty, non-nil ViewModel.
//
// It performs the following passes:
//  1. Parses the XML and checks the root element
//  2. Reads the manufacturer, model and author
//  3. Collects patch banks, under their channel name sets when present
//  4. Collects note lists, control name lists and custom device modes
//
// Parameters:
//   - raw: Document text as stored or fetched
//
// Returns:
//   - *ViewModel: Banks, patches, note lists, control lists and modes
//   - error: ErrMalformedDocument if the text cannot be read as a document
func Normalize(raw string) (*ViewModel, error) {
	root, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	n := &normalizer{root: root}
	return n.run(), nil
}

// parseDocument parses raw and checks the root element.
func parseDocument(raw string) (*element, error) {
	root, err := parseTree(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if root.name != RootElement {
		return nil, fmt.Errorf("%w: root element is <%s>, want <%s>", ErrMalformedDocument, root.name, RootElement)
	}
	return root, nil
}

type normalizer struct {
	root     *element
	warnings []Warning
}

func (n *normalizer) warn(code, format string, args ...any) {
	n.warnings = append(n.warnings, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (n *normalizer) run() *ViewModel {
	vm := &ViewModel{
		Manufacturer: n.root.findText("Manufacturer"),
		Model:        n.root.findText("Model"),
		Author:       n.root.findText("Author"),
		PatchLists:   []PatchList{},
		NoteLists:    []NoteList{},
		ControlLists: []ControlList{},
		DeviceModes:  []DeviceMode{},
	}

	channelSets := n.root.descendants("ChannelNameSet")
	if len(channelSets) > 0 {
		for _, cns := range channelSets {
			setName := cns.attrOr("Name", "")
			channels := n.availableChannels(cns, setName)
			for _, bank := range cns.childrenNamed("PatchBank") {
				pl := n.patchList(bank)
				name := setName
				pl.ChannelNameSet = &name
				pl.AvailableChannels = slices.Clone(channels)
				vm.PatchLists = append(vm.PatchLists, pl)
			}
		}
		if uses := channelSets[0].find("UsesControlNameList"); uses != nil {
			if name, ok := uses.attr("Name"); ok {
				vm.ActiveControlListName = &name
			}
		}
	} else {
		for _, bank := range n.root.descendants("PatchBank") {
			pl := n.patchList(bank)
			pl.AvailableChannels = []AvailableChannel{}
			vm.PatchLists = append(vm.PatchLists, pl)
		}
	}

	vm.NoteLists = n.noteLists()
	vm.ControlLists = n.controlLists()
	vm.DeviceModes = n.deviceModes()

	vm.Warnings = n.warnings
	if vm.Warnings == nil {
		vm.Warnings = []Warning{}
	}
	return vm
}

// availableChannels reads the AvailableChannel entries of a channel name set.
func (n *normalizer) availableChannels(cns *element, setName string) []AvailableChannel {
	out := []AvailableChannel{}
	for _, ac := range cns.descendants("AvailableChannel") {
		raw, _ := ac.attr("Channel")
		ch, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			n.warn(WarnChannelSkipped, "channel name set %q: AvailableChannel with Channel %q skipped", setName, raw)
			continue
		}
		out = append(out, AvailableChannel{
			Channel:   ch,
			Available: strings.EqualFold(strings.TrimSpace(ac.attrOr("Available", "")), "true"),
		})
	}
	return out
}

func (n *normalizer) patchList(bank *element) PatchList {
	return PatchList{
		Name:         bank.attrOr("Name", ""),
		MIDICommands: bankCommands(bank),
		Patches:      n.bankPatches(bank),
	}
}

// bankCommands collects the children of a bank's MIDICommands blocks.
func bankCommands(bank *element) []MIDICommand {
	out := []MIDICommand{}
	for _, block := range bank.descendants("MIDICommands") {
		for _, cmd := range block.children {
			attrs := make(map[string]string, len(cmd.attrs))
			for _, a := range cmd.attrs {
				attrs[strings.ToLower(a.Name.Local)] = a.Value
			}
			out = append(out, MIDICommand{Type: cmd.name, Attributes: attrs})
		}
	}
	return out
}

// bankPatches resolves the patches of a bank. In order it tries the bank's
// own Patch entries, the document-level PatchNameList named by its
// UsesPatchNameList, and the first other bank of the same name that
// defines patches. Reference-only banks under a channel name set rely on
// the last rule.
func (n *normalizer) bankPatches(bank *element) []Patch {
	if patches := bank.descendants("Patch"); len(patches) > 0 {
		return parsePatches(patches)
	}

	bankName := bank.attrOr("Name", "")

	if uses := bank.find("UsesPatchNameList"); uses != nil {
		listName := uses.attrOr("Name", "")
		for _, pnl := range n.root.descendants("PatchNameList") {
			if name, ok := pnl.attr("Name"); ok && name == listName {
				if patches := pnl.descendants("Patch"); len(patches) > 0 {
					return parsePatches(patches)
				}
			}
		}
		n.warn(WarnPatchListMissing, "bank %q: PatchNameList %q not found", bankName, listName)
	}

	if bankName != "" {
		for _, other := range n.root.descendants("PatchBank") {
			if other == bank || other.attrOr("Name", "") != bankName {
				continue
			}
			if patches := other.descendants("Patch"); len(patches) > 0 {
				return parsePatches(patches)
			}
		}
	}
	return []Patch{}
}

func parsePatches(elems []*element) []Patch {
	out := make([]Patch, 0, len(elems))
	for i, p := range elems {
		number := p.attrOr("Number", "")
		patch := Patch{
			Name:          p.attrOr("Name", ""),
			Number:        number,
			ProgramChange: programChange(p, number, i),
		}
		if uses := p.find("UsesNoteNameList"); uses != nil {
			if name, ok := uses.attr("Name"); ok {
				patch.NoteListName = &name
			}
		}
		out = append(out, patch)
	}
	return out
}

// programChange derives the program number of a patch. In order: the
// ProgramChange attribute, a ProgramChange command inside PatchMIDICommands,
// the digits of the display number ("A11" is 11, "R01" is 1), and finally the
// zero-based position in the bank. Values that do not parse, including digit
// runs too large for an int, fall through to the next rule. Two patches may
// end up with the same program number; that is left as is.
func programChange(p *element, number string, position int) int {
	if v, ok := p.attr("ProgramChange"); ok {
		if pc, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return pc
		}
	}

	if cmds := p.find("PatchMIDICommands"); cmds != nil {
		if pcElem := cmds.find("ProgramChange"); pcElem != nil {
			if pc, err := strconv.Atoi(strings.TrimSpace(pcElem.attrOr("Number", ""))); err == nil {
				return pc
			}
		}
	}

	if digits := digitsOf(number); digits != "" {
		if pc, err := strconv.Atoi(digits); err == nil {
			return pc
		}
	}

	return position
}

// digitsOf returns the ASCII digits of s in order.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (n *normalizer) noteLists() []NoteList {
	out := []NoteList{}
	for _, list := range n.root.descendants("NoteNameList") {
		name, ok := list.attr("Name")
		if !ok || name == "" {
			n.warn(WarnListUnnamed, "NoteNameList without Name skipped")
			continue
		}
		nl := NoteList{Name: name, Notes: []Note{}}
		for _, note := range list.descendants("Note") {
			num, okNum := note.attr("Number")
			noteName, okName := note.attr("Name")
			if !okNum || !okName {
				n.warn(WarnNoteSkipped, "note list %q: Note missing Number or Name skipped", name)
				continue
			}
			number, err := strconv.Atoi(strings.TrimSpace(num))
			if err != nil {
				n.warn(WarnNoteSkipped, "note list %q: Note with Number %q skipped", name, num)
				continue
			}
			nl.Notes = append(nl.Notes, Note{Number: number, Name: noteName})
		}
		out = append(out, nl)
	}
	return out
}

func (n *normalizer) controlLists() []ControlList {
	out := []ControlList{}
	for _, list := range n.root.descendants("ControlNameList") {
		name, ok := list.attr("Name")
		if !ok || name == "" {
			n.warn(WarnListUnnamed, "ControlNameList without Name skipped")
			continue
		}
		cl := ControlList{Name: name, Controls: []Control{}}
		for _, ctrl := range list.descendants("Control") {
			num, okNum := ctrl.attr("Number")
			ctrlName, okName := ctrl.attr("Name")
			if !okNum || !okName {
				n.warn(WarnControlSkipped, "control list %q: Control missing Number or Name skipped", name)
				continue
			}
			number, err := strconv.Atoi(strings.TrimSpace(num))
			if err != nil {
				n.warn(WarnControlSkipped, "control list %q: Control with Number %q skipped", name, num)
				continue
			}
			cl.Controls = append(cl.Controls, Control{
				Type:   ctrl.attrOr("Type", "7bit"),
				Number: number,
				Name:   ctrlName,
			})
		}
		out = append(out, cl)
	}
	return out
}

func (n *normalizer) deviceModes() []DeviceMode {
	out := []DeviceMode{}
	for _, mode := range n.root.descendants("CustomDeviceMode") {
		dm := DeviceMode{Name: mode.attrOr("Name", ""), Assignments: []Assignment{}}
		for _, a := range mode.descendants("ChannelNameSetAssign") {
			raw := a.attrOr("Channel", "")
			ch, err := strconv.Atoi(strings.TrimSpace(raw))
			nameSet, ok := a.attr("NameSet")
			if err != nil || !ok {
				n.warn(WarnAssignmentSkipped, "device mode %q: ChannelNameSetAssign with Channel %q skipped", dm.Name, raw)
				continue
			}
			dm.Assignments = append(dm.Assignments, Assignment{Channel: ch, NameSet: nameSet})
		}
		out = append(out, dm)
	}
	return out
}
