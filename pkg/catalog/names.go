package catalog

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// ParseQualifiedName splits "catalog.schema.table". Anything other than three
// non-empty parts yields apperrors.ErrMalformedName.
func ParseQualifiedName(name string) (models.QualifiedName, error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return models.QualifiedName{}, fmt.Errorf("%w: %q has %d parts", apperrors.ErrMalformedName, name, len(parts))
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return models.QualifiedName{}, fmt.Errorf("%w: %q has an empty part", apperrors.ErrMalformedName, name)
		}
	}
	return models.QualifiedName{Catalog: parts[0], Schema: parts[1], Name: parts[2]}, nil
}

// IndexByName keys descriptors by their fully-qualified name.
func IndexByName(tables []models.TableDescriptor) map[string]models.TableDescriptor {
	idx := make(map[string]models.TableDescriptor, len(tables))
	for _, t := range tables {
		idx[t.FullName()] = t
	}
	return idx
}
