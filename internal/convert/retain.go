package convert

import (
	"univsrg/internal/chart"
	"univsrg/internal/resource"
)

// retain returns a package holding only keep, with a pool that contains just
// the resources those beatmaps reference. Beatmaps are shallow-copied so the
// source package is left untouched.
func retain(keep []*chart.Beatmap) *chart.Package {
	pkg := chart.NewPackage()
	moved := make(map[*resource.Entry]*resource.Entry)
	move := func(entry *resource.Entry) *resource.Entry {
		if entry == nil {
			return nil
		}
		if dst, ok := moved[entry]; ok {
			return dst
		}
		dst, _ := pkg.Resources.Insert(entry.OriginalPath(), entry.Bytes())
		moved[entry] = dst
		return dst
	}
	for _, b := range keep {
		clone := *b
		clone.Audio = move(b.Audio)
		clone.Background = move(b.Background)
		pkg.Add(&clone)
	}
	return pkg
}
