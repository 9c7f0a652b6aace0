package signals

import (
	"sort"

	"github.com/Aman-CERP/skillscope/internal/corpus"
)

// merger folds detections into signals: set union over tokens, maximum
// confidence per token. The output does not depend on insertion order.
type merger struct {
	entries map[string]*mergeEntry
}

type mergeEntry struct {
	confidence float64
	sources    map[Source]struct{}
}

func newMerger() *merger {
	return &merger{entries: make(map[string]*mergeEntry)}
}

func (m *merger) add(d detection) {
	m.addConfidence(d.token, d.rule.Confidence(), Source{Rule: d.rule, Path: d.path})
}

func (m *merger) addConfidence(token string, confidence float64, src Source) {
	token = corpus.NormalizeTag(token)
	if token == "" {
		return
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	e := m.entries[token]
	if e == nil {
		e = &mergeEntry{sources: make(map[Source]struct{})}
		m.entries[token] = e
	}
	if confidence > e.confidence {
		e.confidence = confidence
	}
	if src != (Source{}) {
		e.sources[src] = struct{}{}
	}
}

func (m *merger) len() int { return len(m.entries) }

// signals returns the merged signals sorted by token. Sources are ordered
// by rule priority then path before the cap is applied.
func (m *merger) signals() []Signal {
	out := make([]Signal, 0, len(m.entries))
	for token, e := range m.entries {
		sources := make([]Source, 0, len(e.sources))
		for s := range e.sources {
			sources = append(sources, s)
		}
		sort.Slice(sources, func(i, j int) bool {
			if ri, rj := sources[i].Rule.rank(), sources[j].Rule.rank(); ri != rj {
				return ri < rj
			}
			return sources[i].Path < sources[j].Path
		})
		if len(sources) > MaxSources {
			sources = sources[:MaxSources]
		}
		out = append(out, Signal{Token: token, Confidence: e.confidence, Sources: sources})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}
