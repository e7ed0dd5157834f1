package stats

import "github.com/obsidianstack/clusterstats/pkg/types"

// BuildEndpoints maps node descriptors to endpoint stat records, keeping order.
func BuildEndpoints(nodes []types.NodeDescriptor) []NodeEndpointInfo {
	out := make([]NodeEndpointInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeEndpointInfo{
			Address:              n.Address,
			AvailableCores:       n.AvailableCores,
			MaxDirectMemoryBytes: n.MaxDirectMemoryBytes,
			StartedAt:            n.StartedAt,
		})
	}
	return out
}
