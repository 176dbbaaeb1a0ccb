package common

type MediaKind string

const KindImage MediaKind = "image"
const KindVideo MediaKind = "video"

// IsStreamed reports whether items of this kind are handled by the preloader.
// Images go through a simpler unbounded path elsewhere.
func (k MediaKind) IsStreamed() bool {
	return k == KindVideo
}
