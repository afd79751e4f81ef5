package defs

// Common labels for logging
const (
	LabelComponent = "component"

	LabelPath   = "path"
	LabelRemote = "remote"
)
