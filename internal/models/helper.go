package models

// IntPtr is a pointer helper used by request builders and tests.
func IntPtr(v int) *int { return &v }
