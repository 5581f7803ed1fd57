package gallery

import "fmt"

// DerivativeState reports whether one derivative is on disk.
type DerivativeState struct {
	Folder       string `json:"folder"`
	RelativePath string `json:"relativePath"`
	Exists       bool   `json:"exists"`
}

// AssetStatus is a stat-only snapshot of an original and its derivatives.
type AssetStatus struct {
	Filename       string            `json:"filename"`
	OriginalExists bool              `json:"originalExists"`
	Derivatives    []DerivativeState `json:"derivatives"`
}

// FileCount is the number of files currently present for the asset.
func (s *AssetStatus) FileCount() int {
	n := 0
	if s.OriginalExists {
		n++
	}
	for _, d := range s.Derivatives {
		if d.Exists {
			n++
		}
	}
	return n
}

// Status stats the original and each derivative of filename. It takes no
// lock, so the answer may be stale by the time the caller acts on it.
func (m *Manager) Status(filename string) (*AssetStatus, error) {
	if err := CheckFilename(filename); err != nil {
		return nil, err
	}

	paths := m.resolver.Paths(filename)
	ok, err := fileExists(paths.Original)
	if err != nil {
		return nil, fmt.Errorf("stat original %s: %w", filename, err)
	}

	st := &AssetStatus{
		Filename:       filename,
		OriginalExists: ok,
		Derivatives:    make([]DerivativeState, 0, len(paths.Versions)),
	}
	for _, v := range paths.Versions {
		exists, err := fileExists(v.Path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", v.RelativePath, err)
		}
		st.Derivatives = append(st.Derivatives, DerivativeState{
			Folder:       v.Spec.Folder,
			RelativePath: v.RelativePath,
			Exists:       exists,
		})
	}
	return st, nil
}
