package plugin

import "errors"

// Plugin system errors.
var (
	// ErrInvalidManifest is returned when a manifest fails validation.
	ErrInvalidManifest = errors.New("plugin: invalid manifest")

	// ErrAlreadyLoaded is returned when loading a plugin twice.
	ErrAlreadyLoaded = errors.New("plugin: already loaded")

	// ErrNotLoaded is returned when unloading an unknown plugin.
	ErrNotLoaded = errors.New("plugin: not loaded")

	// ErrBadResult is returned when a run function returns something that
	// is neither a node nor a command.
	ErrBadResult = errors.New("plugin: unusable result")
)
