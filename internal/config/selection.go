package config

import (
	"fmt"
	"strings"
)

// Wildcard selects every value.
const Wildcard = "*"

// Target selects which capture steps a task runs.
type Target string

// Target modes.
const (
	TargetAll   Target = "all"
	TargetBook  Target = "book"
	TargetTrade Target = "trade"
)

// ParseTarget validates a target mode.
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetAll, TargetBook, TargetTrade:
		return t, nil
	default:
		return "", fmt.Errorf("capture.target %q is not one of all, book, trade", s)
	}
}

// Books reports whether book snapshots are captured.
func (t Target) Books() bool { return t == TargetAll || t == TargetBook }

// Trades reports whether trade tapes are captured.
func (t Target) Trades() bool { return t == TargetAll || t == TargetTrade }

// List is a parsed comma-separated selector. The zero List matches nothing.
type List struct {
	all   bool
	items []string
	set   map[string]struct{}
}

// ParseList parses "a,b,c" or "*". Blank entries are dropped; matching on
// exchange ids is case-sensitive, token symbols are upper-cased by callers.
func ParseList(s string) List {
	s = strings.TrimSpace(s)
	if s == Wildcard {
		return List{all: true}
	}
	l := List{set: make(map[string]struct{})}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := l.set[part]; dup {
			continue
		}
		l.set[part] = struct{}{}
		l.items = append(l.items, part)
	}
	return l
}

// All reports whether the list is the wildcard.
func (l List) All() bool { return l.all }

// Items returns the explicit entries in the order given.
func (l List) Items() []string { return l.items }

// Contains reports whether v is selected.
func (l List) Contains(v string) bool {
	if l.all {
		return true
	}
	_, ok := l.set[v]
	return ok
}

// Empty reports whether the list selects nothing.
func (l List) Empty() bool { return !l.all && len(l.items) == 0 }

func (l List) String() string {
	if l.all {
		return Wildcard
	}
	return strings.Join(l.items, ",")
}

// Selection is the resolved, read-only capture selection.
type Selection struct {
	Exchanges List
	Bases     List
	Quotes    List
	Target    Target
}

// Selection resolves the capture selectors.
func (c CaptureConfig) Selection() (Selection, error) {
	target, err := ParseTarget(c.Target)
	if err != nil {
		return Selection{}, err
	}
	sel := Selection{
		Exchanges: ParseList(c.Exchanges),
		Bases:     ParseList(strings.ToUpper(c.Bases)),
		Quotes:    ParseList(strings.ToUpper(c.Quotes)),
		Target:    target,
	}
	if sel.Exchanges.Empty() {
		return Selection{}, fmt.Errorf("capture.exchanges is empty")
	}
	return sel, nil
}

// Matches reports whether a market's legs pass the base and quote selectors.
func (s Selection) Matches(base, quote string) bool {
	return s.Bases.Contains(base) && s.Quotes.Contains(quote)
}
