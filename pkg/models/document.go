package models

// ============================================================================
// Sampled Documents
// ============================================================================

// SampledDocument is one document fetched from a source container.
// Documents are read-only once sampled.
type SampledDocument struct {
	ID   string `json:"id"`
	Root Value  `json:"root"`
}

// ContainerSample is the indexed, read-only sample of one container.
type ContainerSample struct {
	Container string            `json:"container"`
	Documents []SampledDocument `json:"documents"`
}

// Len returns the number of sampled documents.
func (s *ContainerSample) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Documents)
}

// ============================================================================
// Container Metadata
// ============================================================================

// ContainerMetadata describes a source container as declared by the store.
type ContainerMetadata struct {
	Name             string     `json:"name" yaml:"name"`
	PartitionKeyPath string     `json:"partition_key_path,omitempty" yaml:"partition_key_path"`
	DocumentCount    int64      `json:"document_count" yaml:"document_count"`
	StorageBytes     int64      `json:"storage_bytes" yaml:"storage_bytes"`
	ProvisionedRU    int        `json:"provisioned_ru,omitempty" yaml:"provisioned_ru"`
	QueryFields      []string   `json:"query_fields,omitempty" yaml:"query_fields"`
	BusinessKeys     [][]string `json:"business_keys,omitempty" yaml:"business_keys"`
}

// PartitionKeyField converts a "/a/b" partition key path into the field
// path "a.b". Returns "" when no partition key is declared.
func (m ContainerMetadata) PartitionKeyField() string {
	return SlashPathToField(m.PartitionKeyPath)
}

// PerformanceMetrics holds aggregated throughput numbers for a container.
// Every field is optional; a nil *PerformanceMetrics means none were supplied.
type PerformanceMetrics struct {
	AvgRUPerSecond   float64 `json:"avg_ru_per_second" yaml:"avg_ru_per_second"`
	PeakRUPerSecond  float64 `json:"peak_ru_per_second" yaml:"peak_ru_per_second"`
	AvgLatencyMillis float64 `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	ThrottledRate    float64 `json:"throttled_rate" yaml:"throttled_rate"`
	TotalRequests    int64   `json:"total_requests" yaml:"total_requests"`
}
