package search

import "github.com/poiesic/notewell/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterVectorSearch(matches []core.SimilarityMatch)
	AfterLexicalScan(candidateIds []core.ID)
	AfterEntityFilter(noteIds []core.ID)
	Finish(results []*core.RankedNote)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                             {}
func (n *noopMonitor) AfterVectorSearch(_ []core.SimilarityMatch) {}
func (n *noopMonitor) AfterLexicalScan(_ []core.ID)               {}
func (n *noopMonitor) AfterEntityFilter(_ []core.ID)              {}
func (n *noopMonitor) Finish(_ []*core.RankedNote)                {}
