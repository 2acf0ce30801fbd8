// Package classify assigns a deletion-safety verdict to filesystem entries.
//
// Classification is a pure function of the entry metadata, the walk root and
// the clock: rules are evaluated in order and the first match wins. Entries
// no rule claims need review.
package classify

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// Entry is the metadata the classifier sees for one path.
type Entry struct {
	// Path is the absolute path of the entry.
	Path string
	// Name is the base name of the entry.
	Name string
	// Mode holds the type bits from Lstat.
	Mode fs.FileMode
	// Size is the entry size in bytes.
	Size int64
	// ModTime is the last modification time.
	ModTime time.Time
	// LinkTarget is the symlink target, absolute or relative to the
	// entry's directory. Empty for non-links or unreadable links.
	LinkTarget string
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Mode.IsDir() }

// IsSymlink reports whether the entry is a symbolic link.
func (e Entry) IsSymlink() bool { return e.Mode&fs.ModeSymlink != 0 }

// Options configures a Classifier.
type Options struct {
	// Protected are base-name globs that are never touched.
	Protected []string
	// InstallerMinAge is how old an installer must be to be disposable.
	InstallerMinAge time.Duration
	// ReviewSize flags unknown files at or above this size as large.
	// Zero disables the flag.
	ReviewSize int64
	// Rules replaces the default rule list when non-nil.
	Rules []Rule
	// Now supplies the clock. Nil uses time.Now.
	Now func() time.Time
}

// Classifier evaluates an ordered rule list.
type Classifier struct {
	rules      []Rule
	reviewSize int64
	now        func() time.Time
}

// New compiles the rule list.
func New(opts Options) (*Classifier, error) {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules(opts.Protected, opts.InstallerMinAge)
	}

	compiled := make([]Rule, len(rules))
	for i, r := range rules {
		r.matchers = nil
		if err := r.compile(); err != nil {
			return nil, err
		}
		compiled[i] = r
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Classifier{
		rules:      compiled,
		reviewSize: opts.ReviewSize,
		now:        now,
	}, nil
}

// Classify returns the verdict and reason for e, which lies under root.
// It is total: every entry gets exactly one verdict.
func (c *Classifier) Classify(root string, e Entry) types.FileItem {
	item, _ := c.decide(root, e)
	return item
}

// Prune reports whether a directory should not be descended into because
// a DoNotTouch rule other than the directory rule claims it.
func (c *Classifier) Prune(root string, e Entry) bool {
	now := c.now()
	for i := range c.rules {
		r := &c.rules[i]
		if r.Kind == RuleDirectory || r.Verdict != types.DoNotTouch {
			continue
		}
		if _, ok := r.match(root, e, now); ok {
			return true
		}
	}
	return false
}

func (c *Classifier) decide(root string, e Entry) (types.FileItem, *Rule) {
	item := types.FileItem{Path: e.Path, Size: e.Size}
	if e.IsDir() {
		item.Size = 0
	}

	now := c.now()
	for i := range c.rules {
		r := &c.rules[i]
		if reason, ok := r.match(root, e, now); ok {
			item.Verdict = r.Verdict
			item.Reason = reason
			return item, r
		}
	}

	item.Verdict = types.NeedsReview
	item.Reason = ReasonUnrecognized
	if c.reviewSize > 0 && e.Size >= c.reviewSize {
		item.Reason = fmt.Sprintf("large file (%s)", types.FormatSize(e.Size))
	}
	return item, nil
}
