package report

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/senpro-it/grafana-reporter/models"
)

var (
	variableToken = regexp.MustCompile(`\$\S+`)
	nonWord       = regexp.MustCompile(`\W+`)
)

// Variables resolves $name references, preferring panel scoped values over
// dashboard-level ones.
type Variables struct {
	Dashboard map[string]string
	Scoped    map[string]models.VarSelection
}

// Lookup returns the value bound to name.
func (v Variables) Lookup(name string) (string, error) {
	if sel, ok := v.Scoped[name]; ok {
		return sel.Text.String(), nil
	}
	if val, ok := v.Dashboard[name]; ok {
		return val, nil
	}
	return "", &UndefinedVariableError{Name: name}
}

// Substitute replaces every $name in s exactly once per distinct name.
// Substituted values are not expanded again.
func (v Variables) Substitute(s string) (string, error) {
	names := lo.Uniq(lo.FilterMap(variableToken.FindAllString(s, -1), func(token string, _ int) (string, bool) {
		name := nonWord.ReplaceAllString(token, "")
		return name, name != ""
	}))
	if len(names) == 0 {
		return s, nil
	}

	// Longest first so $env does not eat into $environment.
	sort.SliceStable(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})

	replacements := make([]string, 0, 2*len(names))
	for _, name := range names {
		val, err := v.Lookup(name)
		if err != nil {
			return "", err
		}
		replacements = append(replacements, "$"+name, val)
	}
	return strings.NewReplacer(replacements...).Replace(s), nil
}
