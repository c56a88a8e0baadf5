package agent

// buildBranchPath composes a hierarchical branch identifier for child agents.
// If parent is empty it returns child; otherwise parent + "." + child.
func buildBranchPath(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
