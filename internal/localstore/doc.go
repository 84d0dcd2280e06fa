// Package localstore persists device documents on the local machine so the
// editor keeps working without the remote catalog.
//
// Each Record is keyed by a unique pseudo file path. Saving to an existing
// path updates the record in place and keeps its ID and CreatedAt. Reads never
// modify records.
//
// # Usage
//
//	store := localstore.New(
//	    localstore.SQLiteOpener(database.ConfigFrom(cfg.Database)),
//	    localstore.WithQuota(cfg.Database.QuotaBytes),
//	    localstore.WithLogger(log),
//	)
//	defer store.Close()
//
//	res, err := store.Save(ctx, localstore.SaveInput{
//	    Path:         "Acme/Synth1.midnam",
//	    Document:     doc,
//	    Manufacturer: "Acme",
//	    Model:        "Synth1",
//	})
//	switch {
//	case errors.Is(err, localstore.ErrStoreUnavailable):
//	    // offer a download instead
//	case errors.Is(err, localstore.ErrQuotaExceeded):
//	    // suggest deleting old records
//	}
//
// Get on a missing path returns (nil, nil) and Delete returns (false, nil).
package localstore
