// Package textutil provides filename sanitization and small text helpers.
//
// Upload names arrive from browsers and the CLI in arbitrary form. They are
// reduced to a base name, normalized to NFC so visually identical names
// collapse to the same file, and stripped of characters that are unsafe on
// common filesystems.
package textutil
