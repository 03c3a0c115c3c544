// Package textutil provides text helpers for building filesystem-safe names.
//
// Chart and resource names originate from user-authored metadata, so they can
// carry path separators, reserved characters, or decomposed Unicode. The
// helpers here normalise such strings to NFC, strip unsafe characters, and
// derive case-folded keys used to detect names that would collide on
// case-insensitive filesystems.
package textutil
