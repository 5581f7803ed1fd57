package gallery

import (
	"context"
	"strings"
)

// DerivativePath resolves a browser request for {folder}/{name} to a file on
// disk, generating the derivative from its original when it is missing.
// name must be decoded already and end in DerivativeExt.
func (m *Manager) DerivativePath(ctx context.Context, folder, name string) (string, error) {
	spec, ok := m.resolver.Spec(folder)
	if !ok {
		return "", &ValidationError{Filename: folder + "/" + name, Reason: "unknown derivative folder"}
	}
	if err := CheckFilename(name); err != nil {
		return "", err
	}
	base, found := strings.CutSuffix(name, DerivativeExt)
	if !found || base == "" {
		return "", &ValidationError{Filename: name, Reason: "derivatives are " + DerivativeExt + " files"}
	}

	original, ok, err := m.resolver.FindOriginal(base)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &NotFoundError{Filename: name}
	}

	target := m.derivativeOf(original, spec.Folder)
	exists, err := fileExists(target)
	if err != nil {
		return "", err
	}
	if exists {
		return target, nil
	}

	m.logger.Info("derivative missing, regenerating", "filename", original, "folder", spec.Folder)
	if _, err := m.GenerateThumbnails(ctx, original); err != nil {
		return "", err
	}
	return target, nil
}

func (m *Manager) derivativeOf(filename, folder string) string {
	for _, v := range m.resolver.Paths(filename).Versions {
		if v.Spec.Folder == folder {
			return v.Path
		}
	}
	return ""
}
