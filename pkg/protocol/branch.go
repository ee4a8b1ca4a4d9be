package protocol

// BranchResult is the output of a conditional-branch action. The coordinator
// keeps the listed downstream action IDs live and records every other
// remaining action in the chain as SKIPPED.
type BranchResult struct {
	Matched bool     `json:"matched"`
	Next    []string `json:"next"`
}
