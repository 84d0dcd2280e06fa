// Package remote is a client for the upstream device API that serves the
// public MIDNAM catalog and device documents.
//
//	GET {base}/midnam_catalog
//	GET {base}/api/device/{Manufacturer|Model}?file={path}
//
// With no base URL configured every call returns ErrDisabled and the editor
// works from the local store alone.
package remote
