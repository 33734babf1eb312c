package catalog

// CatchAll is the reserved pseudo-category meaning the union of every
// tool named by any category.
const CatchAll = "all"

// CategoryMap binds category names to ordered sets of tool names. It is
// loaded from configuration at startup and immutable afterwards; it is
// the authorization matrix for tool listing.
type CategoryMap map[string][]string

// Has reports whether the category exists. CatchAll always exists.
func (m CategoryMap) Has(category string) bool {
	if category == CatchAll {
		return true
	}
	_, ok := m[category]
	return ok
}

// ToolNames returns the set of tool names visible to the category. The
// catch-all category sees the union of all listed tools.
func (m CategoryMap) ToolNames(category string) map[string]bool {
	set := map[string]bool{}
	if category == CatchAll {
		for _, names := range m {
			for _, n := range names {
				set[n] = true
			}
		}
		return set
	}
	for _, n := range m[category] {
		set[n] = true
	}
	return set
}
