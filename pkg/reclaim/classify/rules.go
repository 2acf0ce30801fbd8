package classify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/reclaim/pkg/reclaim/resolve"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// RuleKind tags the variant of a Rule.
type RuleKind int

// Rule variants in their default evaluation order.
const (
	RuleDirectory RuleKind = iota
	RuleEscapingSymlink
	RuleHidden
	RuleProtected
	RuleDisposable
	RuleInstaller
	RuleDuplicate
)

// String returns the rule name used in logs.
func (k RuleKind) String() string {
	switch k {
	case RuleDirectory:
		return "directory"
	case RuleEscapingSymlink:
		return "escaping-symlink"
	case RuleHidden:
		return "hidden"
	case RuleProtected:
		return "protected"
	case RuleDisposable:
		return "disposable"
	case RuleInstaller:
		return "installer"
	case RuleDuplicate:
		return "duplicate-download"
	default:
		return "unknown"
	}
}

// Reasons attached by the structural rules and by the walker.
const (
	ReasonDirectory       = "directory"
	ReasonEscapingSymlink = "symlink escapes root"
	ReasonHidden          = "hidden file"
	ReasonUnreadable      = "unreadable"
	ReasonUnrecognized    = "unrecognized file type"
)

// Rule is one entry of the ordered rule list. Which fields apply depends
// on Kind: Patterns for hidden exemptions, protected, disposable and
// installer rules, MinAge for installers.
type Rule struct {
	Kind     RuleKind
	Verdict  types.Verdict
	Patterns []string
	MinAge   time.Duration

	matchers []glob.Glob
}

// compile prepares the glob matchers. Patterns are matched against the
// lower-cased base name except for protected rules, which are case-sensitive.
func (r *Rule) compile() error {
	r.matchers = r.matchers[:0]
	for _, p := range r.Patterns {
		if r.Kind != RuleProtected {
			p = strings.ToLower(p)
		}
		g, err := glob.Compile(p)
		if err != nil {
			return fmt.Errorf("%s rule pattern %q: %w", r.Kind, p, err)
		}
		r.matchers = append(r.matchers, g)
	}
	return nil
}

func (r *Rule) firstMatch(name string) (string, bool) {
	if r.Kind != RuleProtected {
		name = strings.ToLower(name)
	}
	for i, g := range r.matchers {
		if g.Match(name) {
			return r.Patterns[i], true
		}
	}
	return "", false
}

// DisposablePatterns are temp, cache and OS artifact names.
var DisposablePatterns = []string{
	"*.tmp", "*.temp", "*.log", "*.cache", "*.bak", "*.old", "*.swp",
	"*.part", "*.crdownload", "*.download", "*~",
	".ds_store", "._*", "thumbs.db", "desktop.ini",
}

// InstallerPatterns are installer package names.
var InstallerPatterns = []string{
	"*.dmg", "*.pkg", "*.mpkg", "*.msi", "*.exe", "*.deb", "*.rpm", "*.appimage",
}

// duplicatePattern matches browser duplicate names like "report (2).pdf".
var duplicatePattern = regexp.MustCompile(`^.+ \([1-9][0-9]*\)(\.[^.]+)?$`)

// DefaultRules returns the standard rule list: structural DoNotTouch rules
// first, then AutoSafe disposal rules. Anything unmatched needs review.
func DefaultRules(protected []string, installerMinAge time.Duration) []Rule {
	return []Rule{
		{Kind: RuleDirectory, Verdict: types.DoNotTouch},
		{Kind: RuleEscapingSymlink, Verdict: types.DoNotTouch},
		// Hidden names that are known disposable OS artifacts are exempt.
		{Kind: RuleHidden, Verdict: types.DoNotTouch, Patterns: []string{".ds_store", "._*"}},
		{Kind: RuleProtected, Verdict: types.DoNotTouch, Patterns: protected},
		{Kind: RuleDisposable, Verdict: types.AutoSafe, Patterns: DisposablePatterns},
		{Kind: RuleInstaller, Verdict: types.AutoSafe, Patterns: InstallerPatterns, MinAge: installerMinAge},
		{Kind: RuleDuplicate, Verdict: types.AutoSafe},
	}
}

// match evaluates one rule and returns the reason when it fires.
func (r *Rule) match(root string, e Entry, now time.Time) (string, bool) {
	switch r.Kind {
	case RuleDirectory:
		return ReasonDirectory, e.IsDir()

	case RuleEscapingSymlink:
		if !e.IsSymlink() {
			return "", false
		}
		return ReasonEscapingSymlink, !symlinkStaysUnder(root, e)

	case RuleHidden:
		if !strings.HasPrefix(e.Name, ".") {
			return "", false
		}
		if _, exempt := r.firstMatch(e.Name); exempt {
			return "", false
		}
		return ReasonHidden, true

	case RuleProtected:
		if p, ok := r.firstMatch(e.Name); ok {
			return "protected: " + p, true
		}

	case RuleDisposable:
		if p, ok := r.firstMatch(e.Name); ok {
			return "disposable: " + p, true
		}

	case RuleInstaller:
		p, ok := r.firstMatch(e.Name)
		if !ok || e.ModTime.IsZero() {
			return "", false
		}
		age := now.Sub(e.ModTime)
		if age < r.MinAge {
			return "", false
		}
		return fmt.Sprintf("installer older than %s: %s", formatAge(r.MinAge), p), true

	case RuleDuplicate:
		if duplicatePattern.MatchString(e.Name) {
			return "duplicate download", true
		}
	}
	return "", false
}

func symlinkStaysUnder(root string, e Entry) bool {
	if e.LinkTarget == "" {
		return false
	}
	target := e.LinkTarget
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(e.Path), target)
	}
	return resolve.Within(root, filepath.Clean(target))
}

// formatAge renders whole days when possible ("30d"), otherwise a duration.
func formatAge(d time.Duration) string {
	const day = 24 * time.Hour
	if d >= day && d%day == 0 {
		return fmt.Sprintf("%dd", d/day)
	}
	return d.String()
}
