package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"shiftline/internal/domain"
)

// ErrRoleUnbound reports a planner role whose configured pattern name is missing from the catalog.
var ErrRoleUnbound = errors.New("pattern role not bound to catalog")

// Catalog binds each planner role to one pattern of the shift-pattern catalog.
type Catalog map[domain.PatternRole]domain.ShiftPattern

// ResolveCatalog binds roles to patterns by name (case-insensitive). Every role in domain.Roles must resolve;
// all failures are reported in one error.
func ResolveCatalog(roleNames map[domain.PatternRole]string, patterns []domain.ShiftPattern) (Catalog, error) {
	cat, missing := bind(roleNames, patterns)
	if len(missing) > 0 {
		return cat, fmt.Errorf("%w: %s", ErrRoleUnbound, strings.Join(missing, ", "))
	}
	return cat, nil
}

// ResolveCatalogPartial binds whatever roles resolve and ignores the rest. Workers needing an unbound role are
// skipped by the planner.
func ResolveCatalogPartial(roleNames map[domain.PatternRole]string, patterns []domain.ShiftPattern) Catalog {
	cat, _ := bind(roleNames, patterns)
	return cat
}

func bind(roleNames map[domain.PatternRole]string, patterns []domain.ShiftPattern) (Catalog, []string) {
	byName := make(map[string]domain.ShiftPattern, len(patterns))
	for _, p := range patterns {
		byName[strings.ToLower(strings.TrimSpace(p.Name))] = p
	}
	cat := Catalog{}
	var missing []string
	for _, role := range domain.Roles {
		name, ok := roleNames[role]
		if !ok || strings.TrimSpace(name) == "" {
			missing = append(missing, fmt.Sprintf("%s (no pattern name configured)", role))
			continue
		}
		p, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			missing = append(missing, fmt.Sprintf("%s (pattern %q not in catalog)", role, name))
			continue
		}
		cat[role] = p
	}
	sort.Strings(missing)
	return cat, missing
}

// RoleFor picks the role for the worker at position idx of the day's selection.
func RoleFor(category domain.WorkerCategory, idx int) domain.PatternRole {
	even := idx%2 == 0
	switch {
	case category.FullTime() && even:
		return domain.RoleEarly
	case category.FullTime():
		return domain.RoleLate
	case even:
		return domain.RolePartA
	default:
		return domain.RolePartB
	}
}
