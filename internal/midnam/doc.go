// Package midnam converts MIDI Name Documents (.midnam files) to and from
// the flat view model used by the editor.
//
// # Forward
//
// Normalize parses a raw document and flattens channel name sets, patch
// banks and patches into PatchLists, and collects every NoteNameList and
// ControlNameList in declaration order:
//
//	vm, err := midnam.Normalize(raw)
//	if errors.Is(err, midnam.ErrMalformedDocument) {
//	    // document could not be read
//	}
//	for _, pl := range vm.PatchLists {
//	    fmt.Println(*pl.ChannelNameSet, pl.Name, len(pl.Patches))
//	}
//
// Entries that cannot be used, such as a Note without a numeric Number, are
// skipped and reported in ViewModel.Warnings.
//
// # Reverse
//
// NewDeviceDocument builds a minimal document for a device created offline.
// It is not a general serializer for edited view models.
//
// Both directions are pure and safe for concurrent use.
package midnam
