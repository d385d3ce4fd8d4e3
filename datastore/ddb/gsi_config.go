/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

// GSIConfig holds the configuration for GSI key mappings
type GSIConfig struct {
	// IndexName is the actual GSI name in DynamoDB (e.g., "GSI1")
	IndexName string
	// PartitionKeyName is the partition key attribute of the GSI (e.g., "GSI1PK").
	// The index map template under the same name shapes query values.
	PartitionKeyName string
	// SortKeyName is the sort key attribute of the GSI (e.g., "GSI1SK")
	SortKeyName string
}

// DefaultGSIConfigs holds the GSI configurations every store starts with.
var DefaultGSIConfigs = map[string]GSIConfig{
	"GSI1": {
		IndexName:        "GSI1",
		PartitionKeyName: "GSI1PK",
		SortKeyName:      "GSI1SK",
	},
}

// GetGSIConfig returns the default GSI configuration for a given index name
func GetGSIConfig(indexName string) (GSIConfig, bool) {
	config, ok := DefaultGSIConfigs[indexName]
	return config, ok
}

// GSIConfig returns the configuration the store holds for indexName.
func (s *Store[I, T]) GSIConfig(indexName string) (GSIConfig, bool) {
	config, ok := s.gsi[indexName]
	return config, ok
}
