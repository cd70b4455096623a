// Package id provides unique identifier generation for jobs.
package id

import "github.com/google/uuid"

// Prefix starts every job ID.
const Prefix = "split-"

// Generate creates a new unique job ID.
// Format: split-<uuid v4>
// Example: split-9b2f6c1e-4f5a-4c3b-8d2e-0a1b2c3d4e5f
func Generate() string {
	return Prefix + uuid.NewString()
}
