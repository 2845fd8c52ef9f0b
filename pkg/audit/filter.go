package audit

import (
	"fmt"
	"regexp"

	"github.com/ontapwatch/ontapwatch/pkg/config"
	"github.com/ontapwatch/ontapwatch/pkg/ontap"
)

// neverMatch is substituted for an empty exclusion filter so that an unset
// filter excludes nothing.
const neverMatch = "ThisShouldn'tMatchAnything"

// Filters decide which audit records are forwarded. The exclusion filter is
// checked first; all positive matchers must then match. Unset matchers match
// everything.
type Filters struct {
	exclude     *regexp.Regexp
	input       *regexp.Regexp
	application *regexp.Regexp
	user        *regexp.Regexp
	state       *regexp.Regexp
}

// CompileFilters compiles the configured record matchers.
func CompileFilters(cfg *config.Audit) (*Filters, error) {
	exclude := cfg.InputFilter
	if exclude == "" {
		exclude = neverMatch
	}

	f := &Filters{}
	for _, m := range []struct {
		name    string
		pattern string
		dst     **regexp.Regexp
	}{
		{"inputFilter", exclude, &f.exclude},
		{"inputMatch", cfg.InputMatch, &f.input},
		{"applicationMatch", cfg.ApplicationMatch, &f.application},
		{"userMatch", cfg.UserMatch, &f.user},
		{"stateMatch", cfg.StateMatch, &f.state},
	} {
		re, err := regexp.Compile(m.pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", m.name, err)
		}
		*m.dst = re
	}
	return f, nil
}

// Match reports whether the record should be forwarded.
func (f *Filters) Match(record *ontap.AuditMessage) bool {
	input := orEmpty(record.Input)
	if f.exclude.MatchString(input) {
		return false
	}
	return f.input.MatchString(input) &&
		f.application.MatchString(orEmpty(record.Application)) &&
		f.user.MatchString(orEmpty(record.User)) &&
		f.state.MatchString(orEmpty(record.State))
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
