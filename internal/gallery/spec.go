package gallery

// DerivativeSpec describes one resized copy kept for every original.
type DerivativeSpec struct {
	Folder       string
	MaxDimension int
	Quality      int
}

// DefaultSpecs returns the thumbnail, small and large derivatives in the
// order they are produced and reported.
func DefaultSpecs() []DerivativeSpec {
	return []DerivativeSpec{
		{Folder: "thmb", MaxDimension: 300, Quality: 92},
		{Folder: "small", MaxDimension: 960, Quality: 96},
		{Folder: "large", MaxDimension: 1960, Quality: 96},
	}
}
