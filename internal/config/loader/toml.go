package loader

import (
	"errors"

	"github.com/pelletier/go-toml/v2"
)

func parseTOML(data []byte, out *map[string]any) error {
	return toml.Unmarshal(data, out)
}

// tomlLine extracts the line of a go-toml decode error.
func tomlLine(err error) int {
	var de *toml.DecodeError
	if errors.As(err, &de) {
		line, _ := de.Position()
		return line
	}
	return 0
}
