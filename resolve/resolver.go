// ABOUTME: Path resolver that picks a replacement for a missing local playlist entry
// ABOUTME: Implements the first, shortest and path-score collision ranking strategies

package resolve

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"m3u-dump/playlist"
)

// Strategy selects one candidate when a basename exists in several directories
type Strategy string

const (
	StrategyFirst     Strategy = "first"
	StrategyShortest  Strategy = "shortest"
	StrategyPathScore Strategy = "path-score"
)

// DefaultStrategy is used when no strategy, or an unknown one, is configured
const DefaultStrategy = StrategyPathScore

// ParseStrategy maps a configured name to a Strategy
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyFirst, StrategyShortest, StrategyPathScore:
		return Strategy(s), true
	default:
		return DefaultStrategy, false
	}
}

// Status is the outcome of resolving one local entry
type Status int

const (
	// Unchanged means the file exists at its original path
	Unchanged Status = iota
	// Resolved means a replacement was found in the index
	Resolved
	// Unresolved means no file with that basename was indexed
	Unresolved
)

func (s Status) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Resolved:
		return "resolved"
	default:
		return "unresolved"
	}
}

// Result describes how an entry was resolved
type Result struct {
	Status     Status
	Basename   string
	Selected   string   // Full path of the chosen file (Resolved only)
	Candidates []string // Full paths of every indexed match, in discovery order
}

// Collision reports whether more than one candidate competed for the entry
func (r Result) Collision() bool {
	return r.Status == Resolved && len(r.Candidates) > 1
}

// Resolver resolves missing local entries against an index
type Resolver struct {
	index    Lookup
	strategy Strategy
	exists   func(string) bool
}

// NewResolver creates a resolver; an unknown strategy falls back to path-score
func NewResolver(index Lookup, strategy Strategy) *Resolver {
	if _, ok := ParseStrategy(string(strategy)); !ok {
		strategy = DefaultStrategy
	}

	return &Resolver{
		index:    index,
		strategy: strategy,
		exists:   fileExists,
	}
}

// Strategy returns the ranking strategy in use
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// Resolve returns Unchanged for an existing path without consulting the index,
// otherwise looks the basename up and ranks the candidates
func (r *Resolver) Resolve(original string) Result {
	return r.ResolveRef(original, original)
}

// ResolveRef is Resolve for an entry whose on-disk location differs from the
// reference written in the playlist: existence is checked on path, while
// path-score ranks candidates against ref
func (r *Resolver) ResolveRef(path, ref string) Result {
	base := playlist.Basename(path)

	if r.exists(path) {
		return Result{Status: Unchanged, Basename: base}
	}

	var dirs []string
	if r.index != nil {
		dirs = r.index.Lookup(base)
	}

	if len(dirs) == 0 {
		return Result{Status: Unresolved, Basename: base}
	}

	candidates := make([]string, len(dirs))
	for i, d := range dirs {
		candidates[i] = filepath.Join(d, base)
	}

	selected := SelectDir(ref, dirs, r.strategy)

	return Result{
		Status:     Resolved,
		Basename:   base,
		Selected:   filepath.Join(selected, base),
		Candidates: candidates,
	}
}

// SelectDir ranks candidate directories for original and returns the winner.
// Ties always fall back to discovery order.
func SelectDir(original string, dirs []string, strategy Strategy) string {
	if len(dirs) == 0 {
		return ""
	}

	switch strategy {
	case StrategyFirst:
		return dirs[0]

	case StrategyShortest:
		best := 0
		for i := 1; i < len(dirs); i++ {
			if len(segments(dirs[i])) < len(segments(dirs[best])) {
				best = i
			}
		}

		return dirs[best]

	default:
		origTokens := tokenSet(original)

		// Highest score wins, then fewer segments; equal candidates keep discovery order
		best := 0
		bestScore, bestDepth := overlap(origTokens, dirs[0]), len(segments(dirs[0]))

		for i := 1; i < len(dirs); i++ {
			score, depth := overlap(origTokens, dirs[i]), len(segments(dirs[i]))
			if score > bestScore || (score == bestScore && depth < bestDepth) {
				best, bestScore, bestDepth = i, score, depth
			}
		}

		return dirs[best]
	}
}

// PathScore counts the lower-cased segments of dir that also appear in the original reference
func PathScore(original, dir string) int {
	return overlap(tokenSet(original), dir)
}

func overlap(origTokens map[string]struct{}, dir string) int {
	score := 0
	for tok := range tokenSet(dir) {
		if _, ok := origTokens[tok]; ok {
			score++
		}
	}

	return score
}

// tokenSet returns the distinct lower-cased path segments of p
func tokenSet(p string) map[string]struct{} {
	parts := segments(p)

	set := make(map[string]struct{}, len(parts))
	for _, s := range parts {
		set[strings.ToLower(s)] = struct{}{}
	}

	return set
}

// segments splits p on both separators after normalizing '.' and '..'
func segments(p string) []string {
	p = path.Clean(strings.ReplaceAll(p, `\`, "/"))

	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}

	return out
}

// fileExists reports whether p names something other than a directory
func fileExists(p string) bool {
	fi, err := os.Stat(p)

	return err == nil && !fi.IsDir()
}
