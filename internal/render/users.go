package render

// UserAccumulator tracks which user labels have already been drawn. Each name
// is emitted once, above the first element that lists it.
type UserAccumulator struct {
	seen map[string]bool
}

// NewUserAccumulator returns an empty accumulator.
func NewUserAccumulator() *UserAccumulator {
	return &UserAccumulator{seen: make(map[string]bool)}
}

// Claim marks users as drawn and returns, in input order, the ones that had
// not been drawn before.
func (a *UserAccumulator) Claim(users []string) []string {
	var fresh []string
	for _, u := range users {
		if u == "" || a.seen[u] {
			continue
		}
		a.seen[u] = true
		fresh = append(fresh, u)
	}
	return fresh
}

// Seen reports whether name has been claimed.
func (a *UserAccumulator) Seen(name string) bool {
	return a.seen[name]
}

// Len returns the number of distinct users claimed.
func (a *UserAccumulator) Len() int {
	return len(a.seen)
}
