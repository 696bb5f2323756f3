package source

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// MetadataFile is the standalone container metadata document.
type MetadataFile struct {
	Containers []models.ContainerMetadata `yaml:"containers"`
}

// LoadMetadata reads container metadata from a YAML file.
func LoadMetadata(path string) ([]models.ContainerMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file %s: %w", path, err)
	}
	return ParseMetadata(data)
}

// ParseMetadata decodes container metadata YAML and rejects unnamed or
// repeated containers.
func ParseMetadata(data []byte) ([]models.ContainerMetadata, error) {
	var file MetadataFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	seen := make(map[string]bool, len(file.Containers))
	for i, m := range file.Containers {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, &apperrors.ConfigurationError{Field: fmt.Sprintf("containers[%d].name", i), Reason: "container name is required"}
		}
		if seen[name] {
			return nil, &apperrors.ConfigurationError{Field: fmt.Sprintf("containers[%d].name", i), Reason: fmt.Sprintf("container %q declared twice", name)}
		}
		if m.DocumentCount < 0 || m.StorageBytes < 0 {
			return nil, &apperrors.ConfigurationError{Field: fmt.Sprintf("containers[%d]", i), Reason: "counts must not be negative"}
		}
		seen[name] = true
		file.Containers[i].Name = name
	}
	return file.Containers, nil
}

// MergeMetadata overlays declared metadata on discovered metadata. Declared
// entries win field by field when set; discovered containers missing from
// declared are appended in discovery order.
func MergeMetadata(declared, discovered []models.ContainerMetadata) []models.ContainerMetadata {
	byName := make(map[string]models.ContainerMetadata, len(discovered))
	for _, d := range discovered {
		byName[d.Name] = d
	}

	out := make([]models.ContainerMetadata, 0, len(declared)+len(discovered))
	used := make(map[string]bool, len(declared))
	for _, m := range declared {
		if d, ok := byName[m.Name]; ok {
			if m.PartitionKeyPath == "" {
				m.PartitionKeyPath = d.PartitionKeyPath
			}
			if m.DocumentCount == 0 {
				m.DocumentCount = d.DocumentCount
			}
			if m.StorageBytes == 0 {
				m.StorageBytes = d.StorageBytes
			}
		}
		used[m.Name] = true
		out = append(out, m)
	}
	for _, d := range discovered {
		if !used[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

// SelectMetadata returns declared metadata for names, or a copy of the whole
// declared list when names is empty. Undeclared names carry only a name.
func SelectMetadata(declared []models.ContainerMetadata, names []string) []models.ContainerMetadata {
	if len(names) == 0 {
		return append([]models.ContainerMetadata(nil), declared...)
	}
	byName := make(map[string]models.ContainerMetadata, len(declared))
	for _, m := range declared {
		byName[m.Name] = m
	}
	out := make([]models.ContainerMetadata, 0, len(names))
	for _, name := range names {
		meta, ok := byName[name]
		if !ok {
			meta = models.ContainerMetadata{Name: name}
		}
		out = append(out, meta)
	}
	return out
}

// DocumentID picks the identifier of a sampled document: the id field, then
// _id, then a positional fallback.
func DocumentID(container string, root models.Value, ordinal int) string {
	for _, key := range []string{"id", "_id"} {
		if v, ok := root.Get(key); ok && v.Kind != models.KindNull && v.IsScalar() {
			return v.Display()
		}
	}
	return fmt.Sprintf("%s#%d", container, ordinal)
}
