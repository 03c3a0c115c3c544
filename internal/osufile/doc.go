// Package osufile reads and writes the section-oriented chart text format
// ("osu file format vN").
//
// Parse produces a generic model: key-value sections keep ordered pairs and
// list sections keep raw lines. Typed codecs for timing points, hit objects,
// and background events convert individual lines. The package knows nothing
// about the chart model; the osu package maps between the two.
package osufile
