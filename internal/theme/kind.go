// AngelaMos | 2026
// kind.go

package theme

// Kind is the closed set of card renderers. A theme id that names none of
// them resolves to KindNone, which renders the neutral layout.
type Kind string

const (
	KindNone                  Kind = ""
	KindBlueTheme             Kind = "BlueTheme"
	KindGreenProfile          Kind = "GreenProfile"
	KindDirectorProfileTheme  Kind = "DirectorProfileTheme"
	KindPinkBusinessCardTheme Kind = "PinkBusinessCardTheme"
	KindBusinessTheme         Kind = "BusinessTheme"
	KindEngineerTheme         Kind = "EngineerTheme"
)

var kinds = []Kind{
	KindBlueTheme,
	KindGreenProfile,
	KindDirectorProfileTheme,
	KindPinkBusinessCardTheme,
	KindBusinessTheme,
	KindEngineerTheme,
}

// Kinds lists every renderer-backed kind in display order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind maps a stored theme id to its Kind. Matching is exact.
func ParseKind(id string) Kind {
	for _, k := range kinds {
		if string(k) == id {
			return k
		}
	}
	return KindNone
}

func (k Kind) Known() bool {
	return k != KindNone && ParseKind(string(k)) == k
}

// Label is the metric and log value for the kind.
func (k Kind) Label() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}
