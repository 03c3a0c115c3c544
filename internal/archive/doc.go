// Package archive extracts and creates chart bundles (zip archives).
//
// Extraction confines every entry to the destination directory and skips
// symlinks. Creation walks a scratch tree, deflates each regular file under
// its tree-relative name, and renames the finished archive into place.
package archive
