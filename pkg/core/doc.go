// Package core defines the shared language of the Datascribe system.
//
// This package contains:
//   - Graph entities (ModelNode, ModelGraph, SourceRef)
//   - Warehouse shapes (Column, TableRef)
//   - Profiling results (TableStatisticsProfile, ProfileResult, ProfileSummary)
//   - Change-detection cache types (HashRecord, HashCache)
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
