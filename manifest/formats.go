package manifest

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.yaml.in/yaml/v3"
)

// unmarshal parses data into v, dispatching on path's extension: TOML by
// default, YAML for .yaml/.yml, JSON for .json. Unknown keys are tolerated
// in every format: a manifest author adding a field this version of the
// library doesn't know about should not fail the build.
func unmarshal(path string, data []byte, v interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	case ".json":
		return json.Unmarshal(data, v)
	default:
		_, err := toml.Decode(string(data), v)
		return err
	}
}
