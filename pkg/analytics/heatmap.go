package analytics

import (
	"strconv"

	"github.com/sentinelsoft/rulegraph/pkg/rulegraph"
)

// DefaultBlockSize is the id-range width of one heatmap block.
const DefaultBlockSize = 10

// Heatmap is the rule-id density artifact: how many rules fall into each
// fixed-width block of the numeric id range.
type Heatmap struct {
	Metadata HeatmapMeta `json:"metadata"`
	Blocks   []Block     `json:"blocks"`
}

// HeatmapMeta describes the block layout of a heatmap.
type HeatmapMeta struct {
	BlockSize   int `json:"block_size"`
	MaxID       int `json:"max_id"`
	TotalBlocks int `json:"total_blocks"`
}

// Block is one id-range bucket, labeled "start-end" inclusive.
type Block struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// ComputeHeatmap buckets every purely numeric rule id into blocks of
// blockSize consecutive ids. The covered range runs from 0 through the block
// containing the highest id, empty blocks included, so every numeric id
// lands in exactly one emitted block. Non-numeric ids and the synthetic root
// do not contribute.
func ComputeHeatmap(g *rulegraph.Graph, blockSize int) *Heatmap {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	var numeric []int
	for _, n := range g.Nodes() {
		if n.ID == rulegraph.RootID {
			continue
		}
		if !isNumericID(n.ID) {
			continue
		}
		v, err := strconv.Atoi(n.ID)
		if err != nil {
			continue
		}
		numeric = append(numeric, v)
	}

	h := &Heatmap{
		Metadata: HeatmapMeta{BlockSize: blockSize},
		Blocks:   []Block{},
	}
	if len(numeric) == 0 {
		return h
	}

	maxID := numeric[0]
	for _, v := range numeric[1:] {
		if v > maxID {
			maxID = v
		}
	}
	// The covered range is half-open, so a maximum id sitting exactly on a
	// block boundary still needs the block it falls into.
	span := (maxID/blockSize + 1) * blockSize

	counts := make(map[int]int)
	for _, v := range numeric {
		counts[v/blockSize]++
	}

	total := span / blockSize
	for i := 0; i < total; i++ {
		start := i * blockSize
		h.Blocks = append(h.Blocks, Block{
			ID:    strconv.Itoa(start) + "-" + strconv.Itoa(start+blockSize-1),
			Count: counts[i],
		})
	}
	h.Metadata.MaxID = span
	h.Metadata.TotalBlocks = total
	return h
}

// isNumericID reports whether the id consists solely of decimal digits.
func isNumericID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
