package route

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

const pathSeparator = "/"

// globPattern finds the wildcard and template tokens inside one segment.
var globPattern = regexp.MustCompile(`\?|\*|\{((?:\{[^/]+?\}|[^/{}]|\\[{}])+?)\}`)

// Matcher implements Ant-style path matching.
//
//	?            one character within a segment
//	*            zero or more characters within a segment
//	**           zero or more segments
//	{name}       one segment, captured as name
//	{name:re}    one segment matching re, captured as name
//
// Empty segments are ignored, so "/a//b" matches "/a/b". Compiled
// segment patterns are cached; a Matcher is safe for concurrent use.
type Matcher struct {
	cache sync.Map // segment pattern -> *segment
}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match reports whether path matches pattern.
func (m *Matcher) Match(pattern, path string) bool {
	ok, _ := m.match(pattern, path, nil)
	return ok
}

// ExtractVariables returns the template variables of pattern as bound by
// path. The second result is false when path does not match.
func (m *Matcher) ExtractVariables(pattern, path string) (map[string]string, bool) {
	vars := make(map[string]string)
	ok, err := m.match(pattern, path, vars)
	if err != nil || !ok {
		return map[string]string{}, false
	}
	return vars, true
}

// Validate compiles every segment of pattern and reports the first one
// that is not usable.
func (m *Matcher) Validate(pattern string) error {
	for _, seg := range tokenize(pattern) {
		if seg == "**" {
			continue
		}
		if _, err := m.segment(seg); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) match(pattern, path string, vars map[string]string) (bool, error) {
	if strings.HasPrefix(path, pathSeparator) != strings.HasPrefix(pattern, pathSeparator) {
		return false, nil
	}

	pattDirs := tokenize(pattern)
	pathDirs := tokenize(path)

	pattStart, pattEnd := 0, len(pattDirs)-1
	pathStart, pathEnd := 0, len(pathDirs)-1

	// Leading segments up to the first "**".
	for pattStart <= pattEnd && pathStart <= pathEnd {
		pattDir := pattDirs[pattStart]
		if pattDir == "**" {
			break
		}
		ok, err := m.matchSegment(pattDir, pathDirs[pathStart], vars)
		if err != nil || !ok {
			return false, err
		}
		pattStart++
		pathStart++
	}

	if pathStart > pathEnd {
		// Path exhausted.
		if pattStart > pattEnd {
			if strings.HasSuffix(pattern, pathSeparator) {
				return strings.HasSuffix(path, pathSeparator), nil
			}
			return !strings.HasSuffix(path, pathSeparator), nil
		}
		if pattStart == pattEnd && pattDirs[pattStart] == "*" && strings.HasSuffix(path, pathSeparator) {
			return true, nil
		}
		return onlyDoubleStars(pattDirs[pattStart : pattEnd+1]), nil
	} else if pattStart > pattEnd {
		// Pattern exhausted with path left over.
		return false, nil
	}

	// Trailing segments back to the last "**".
	for pattStart <= pattEnd && pathStart <= pathEnd {
		pattDir := pattDirs[pattEnd]
		if pattDir == "**" {
			break
		}
		ok, err := m.matchSegment(pattDir, pathDirs[pathEnd], vars)
		if err != nil || !ok {
			return false, err
		}
		pattEnd--
		pathEnd--
	}
	if pathStart > pathEnd {
		return onlyDoubleStars(pattDirs[pattStart : pattEnd+1]), nil
	}

	// Segments between pairs of "**".
	for pattStart != pattEnd && pathStart <= pathEnd {
		pattTmp := -1
		for i := pattStart + 1; i <= pattEnd; i++ {
			if pattDirs[i] == "**" {
				pattTmp = i
				break
			}
		}
		if pattTmp == pattStart+1 {
			// "**/**"
			pattStart++
			continue
		}

		pattLen := pattTmp - pattStart - 1
		pathLen := pathEnd - pathStart + 1
		found := -1

	search:
		for i := 0; i <= pathLen-pattLen; i++ {
			trial := make(map[string]string)
			for j := 0; j < pattLen; j++ {
				ok, err := m.matchSegment(pattDirs[pattStart+j+1], pathDirs[pathStart+i+j], trial)
				if err != nil {
					return false, err
				}
				if !ok {
					continue search
				}
			}
			if vars != nil {
				for k, v := range trial {
					vars[k] = v
				}
			}
			found = pathStart + i
			break
		}

		if found == -1 {
			return false, nil
		}
		pattStart = pattTmp
		pathStart = found + pattLen
	}

	return onlyDoubleStars(pattDirs[pattStart : pattEnd+1]), nil
}

func onlyDoubleStars(dirs []string) bool {
	for _, d := range dirs {
		if d != "**" {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	parts := strings.Split(s, pathSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (m *Matcher) matchSegment(pattern, str string, vars map[string]string) (bool, error) {
	seg, err := m.segment(pattern)
	if err != nil {
		return false, err
	}
	return seg.match(str, vars), nil
}

func (m *Matcher) segment(pattern string) (*segment, error) {
	if cached, ok := m.cache.Load(pattern); ok {
		return cached.(*segment), nil
	}
	seg, err := compileSegment(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := m.cache.LoadOrStore(pattern, seg)
	return actual.(*segment), nil
}

// segment is one compiled path segment pattern.
type segment struct {
	literal string
	re      *regexp.Regexp
	names   []string
}

func compileSegment(pattern string) (*segment, error) {
	if !strings.ContainsAny(pattern, "*?{") {
		return &segment{literal: pattern}, nil
	}

	var b strings.Builder
	var names []string
	end := 0
	for _, loc := range globPattern.FindAllStringSubmatchIndex(pattern, -1) {
		b.WriteString(regexp.QuoteMeta(pattern[end:loc[0]]))
		token := pattern[loc[0]:loc[1]]
		switch token {
		case "?":
			b.WriteString(".")
		case "*":
			b.WriteString(".*")
		default:
			inner := pattern[loc[2]:loc[3]]
			if colon := strings.Index(inner, ":"); colon == -1 {
				b.WriteString("(.*)")
				names = append(names, inner)
			} else {
				b.WriteString("(")
				b.WriteString(inner[colon+1:])
				b.WriteString(")")
				names = append(names, inner[:colon])
			}
		}
		end = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(pattern[end:]))

	re, err := regexp.Compile("^(?:" + b.String() + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: segment %q: %v", ErrInvalidPattern, pattern, err)
	}
	if len(names) > 0 && re.NumSubexp() != len(names) {
		return nil, fmt.Errorf("%w: segment %q declares %d variables but has %d capturing groups; use non-capturing groups in variable patterns",
			ErrInvalidPattern, pattern, len(names), re.NumSubexp())
	}
	return &segment{re: re, names: names}, nil
}

func (s *segment) match(str string, vars map[string]string) bool {
	if s.re == nil {
		return s.literal == str
	}
	groups := s.re.FindStringSubmatch(str)
	if groups == nil {
		return false
	}
	if vars != nil {
		for i, name := range s.names {
			vars[name] = groups[i+1]
		}
	}
	return true
}
