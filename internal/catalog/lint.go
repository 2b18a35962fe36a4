package catalog

import (
	"fmt"
	"strings"
)

// Lint reports configuration that is accepted but ambiguous. Nothing it
// reports is rejected: among duplicate entities and endpoints the first active
// one in list order is served.
func Lint(svc *ServiceConfig) []string {
	var warnings []string

	entities := make(map[string]int, len(svc.Entities))
	resourceIDs := make(map[string]string, len(svc.Entities))

	for i, e := range svc.Entities {
		if first, ok := entities[e.Name]; ok {
			warnings = append(warnings, fmt.Sprintf(
				"duplicate entity %q at index %d, first declared at index %d", e.Name, i, first))
			continue
		}
		entities[e.Name] = i

		id := ResourceID(svc.Name, e.Name)
		if other, ok := resourceIDs[id]; ok {
			warnings = append(warnings, fmt.Sprintf(
				"entities %q and %q share collection %s", other, e.Name, id))
		} else {
			resourceIDs[id] = e.Name
		}

		endpoints := make(map[string]int, len(e.Endpoints))
		for j, ep := range e.Endpoints {
			key := ep.Route + " " + strings.ToUpper(string(ep.Verb))
			if first, ok := endpoints[key]; ok {
				warnings = append(warnings, fmt.Sprintf(
					"entity %q: duplicate endpoint %s %q at index %d, first declared at index %d",
					e.Name, ep.Verb, ep.Route, j, first))
				continue
			}
			endpoints[key] = j
		}
	}

	return warnings
}
