package index

import (
	"fmt"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
)

// SnapshotVersion changes whenever Document or tokenization changes shape,
// invalidating cached snapshots.
const SnapshotVersion = 2

// Snapshot is the serializable form of an Index.
type Snapshot struct {
	Version int         `json:"version"`
	Hash    string      `json:"hash"`
	Docs    []*Document `json:"docs"`
	// Warnings are the build warnings, replayed when the snapshot is restored.
	Warnings []serrors.Warning `json:"warnings,omitempty"`
}

// Export returns a snapshot sharing the index's documents.
func (x *Index) Export() Snapshot {
	return Snapshot{Version: SnapshotVersion, Hash: x.hash, Docs: x.docs, Warnings: x.warnings}
}

// Import rebuilds an Index from a snapshot.
func Import(s Snapshot) (*Index, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if len(s.Docs) == 0 {
		return nil, fmt.Errorf("snapshot has no documents")
	}
	seen := make(map[string]struct{}, len(s.Docs))
	docs := make([]*Document, 0, len(s.Docs))
	for _, d := range s.Docs {
		if d == nil || d.ID == "" {
			return nil, fmt.Errorf("snapshot contains a document without id")
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("snapshot contains duplicate id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
		if d.TermFreq == nil {
			d.TermFreq = map[string]int{}
		}
		docs = append(docs, d)
	}
	idx := assemble(s.Hash, docs)
	idx.warnings = s.Warnings
	return idx, nil
}
