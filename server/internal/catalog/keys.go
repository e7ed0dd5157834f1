package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// sep separates path components inside keys; it cannot appear in names.
const sep = "\x1f"

const (
	prefixSource          = "src/"
	prefixDataset         = "ds/"
	prefixSpace           = "space/"
	prefixUser            = "user/"
	prefixJob             = "job/"
	prefixAcceleration    = "acc/"
	prefixMaterialization = "mat/"
)

func norm(name string) string { return strings.ToLower(name) }

func sourceKey(name string) []byte { return []byte(prefixSource + norm(name)) }

func spaceKey(name string) []byte { return []byte(prefixSpace + norm(name)) }

func userKey(name string) []byte { return []byte(prefixUser + name) }

func pathKey(key types.NamespaceKey) string {
	parts := make([]string, len(key))
	for i, p := range key {
		parts[i] = norm(p)
	}
	return strings.Join(parts, sep)
}

func datasetKey(path types.NamespaceKey) []byte {
	return []byte(prefixDataset + pathKey(path))
}

// datasetChildrenPrefix matches every dataset strictly below key.
func datasetChildrenPrefix(key types.NamespaceKey) []byte {
	return []byte(prefixDataset + pathKey(key) + sep)
}

// jobTimeKey encodes t so that keys sort chronologically.
func jobTimeKey(t time.Time) string {
	return prefixJob + fmt.Sprintf("%020d", t.UnixNano())
}

func jobKey(j types.JobRecord) []byte {
	return []byte(jobTimeKey(j.StartedAt) + "/" + j.ID)
}

func accelerationKey(id string) []byte { return []byte(prefixAcceleration + id) }

func materializationPrefix(layoutID string) []byte {
	return []byte(prefixMaterialization + layoutID + sep)
}

func materializationKey(m types.Materialization) []byte {
	return append(materializationPrefix(m.LayoutID), m.ID...)
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if strings.Contains(name, sep) {
		return fmt.Errorf("name %q contains a reserved character", name)
	}
	return nil
}
