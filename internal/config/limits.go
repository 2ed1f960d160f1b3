package config

import "time"

const (
	// MaxNodeNameLength caps file and folder display names.
	MaxNodeNameLength = 255

	// MaxTagLength caps a single smart tag.
	MaxTagLength = 64

	// MaxUploadBytes caps a single file upload (16 MB).
	MaxUploadBytes = 16 << 20

	// DefaultSaveDebounce is the quiet period before a scheduled
	// snapshot write fires. Rapid mutations inside the window are
	// coalesced into one write of the latest tree.
	DefaultSaveDebounce = 1500 * time.Millisecond
)
