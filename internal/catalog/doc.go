// Package catalog defines the device catalog served to the editor and
// merges locally stored devices into the remote one.
package catalog
