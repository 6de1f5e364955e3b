package manifest

import (
	"encoding/json"
	"fmt"
)

// Listener is a callback function that receives events while a manifest is
// loaded. It follows the same convention as container.Listener.
type Listener func(fmt.Stringer)

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventManifestLoaded is emitted once a manifest file has been parsed.
type EventManifestLoaded struct {
	Path            string `json:"path,omitempty"`
	DependencyCount int    `json:"dependency_count"`
}

func (e EventManifestLoaded) String() string { return jsonString(e) }
