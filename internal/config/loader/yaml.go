package loader

import "gopkg.in/yaml.v3"

func parseYAML(data []byte, out *map[string]any) error {
	if err := yaml.Unmarshal(data, out); err != nil {
		return err
	}
	normalizeYAML(*out)
	return nil
}

// normalizeYAML converts the int values yaml.v3 produces to int64 so both
// file formats yield the same map shapes.
func normalizeYAML(m map[string]any) {
	for k, v := range m {
		switch x := v.(type) {
		case int:
			m[k] = int64(x)
		case map[string]any:
			normalizeYAML(x)
		}
	}
}
