// Package team maps human-readable team names to the two identifiers the
// helpdesk uses for them and holds the allow-list of sales teams.
package team

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadfunnel/internal/apperr"
)

// Team is one routing group. UUID keys the team/users lookup; ID keys the
// conversations query.
type Team struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
	ID   int64  `json:"id"`
}

// Resolver is an immutable lookup over the configured teams. It is safe for
// concurrent use.
type Resolver struct {
	byName map[string]Team
	byID   map[int64]Team
	sales  []Team
}

// NewResolver builds a Resolver. salesNames selects the allow-list in the
// given order; when empty every team is a sales team, ordered by name.
func NewResolver(teams []Team, salesNames []string) (*Resolver, error) {
	r := &Resolver{
		byName: make(map[string]Team, len(teams)),
		byID:   make(map[int64]Team, len(teams)),
	}
	for _, t := range teams {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, eris.New("team: empty team name")
		}
		if _, dup := r.byName[name]; dup {
			return nil, eris.Errorf("team: duplicate team name %q", name)
		}
		if prev, dup := r.byID[t.ID]; dup {
			return nil, eris.Errorf("team: id %d used by both %q and %q", t.ID, prev.Name, name)
		}
		t.Name = name
		r.byName[name] = t
		r.byID[t.ID] = t
	}

	if len(salesNames) == 0 {
		for _, t := range r.byName {
			r.sales = append(r.sales, t)
		}
		sort.Slice(r.sales, func(i, j int) bool { return r.sales[i].Name < r.sales[j].Name })
		return r, nil
	}

	seen := make(map[string]bool, len(salesNames))
	for _, n := range salesNames {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		t, ok := r.byName[n]
		if !ok {
			return nil, eris.Errorf("team: sales team %q has no id mapping", n)
		}
		seen[n] = true
		r.sales = append(r.sales, t)
	}
	return r, nil
}

// Lookup returns the team with the given name.
func (r *Resolver) Lookup(name string) (Team, error) {
	t, ok := r.byName[name]
	if !ok {
		return Team{}, apperr.Validation(fmt.Sprintf("unknown team %q", name))
	}
	return t, nil
}

// UUID returns the identity-lookup key for a team name.
func (r *Resolver) UUID(name string) (string, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return t.UUID, nil
}

// ConversationID returns the numeric conversation-query key for a team name.
func (r *Resolver) ConversationID(name string) (int64, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

// ByID returns the team with the given numeric id.
func (r *Resolver) ByID(id int64) (Team, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// SalesTeams returns a copy of the allow-list.
func (r *Resolver) SalesTeams() []Team {
	out := make([]Team, len(r.sales))
	copy(out, r.sales)
	return out
}

// SalesIDs returns the numeric ids of the allow-list.
func (r *Resolver) SalesIDs() []int64 {
	ids := make([]int64, len(r.sales))
	for i, t := range r.sales {
		ids[i] = t.ID
	}
	return ids
}

// IsSales reports whether id belongs to the allow-list.
func (r *Resolver) IsSales(id int64) bool {
	for _, t := range r.sales {
		if t.ID == id {
			return true
		}
	}
	return false
}

// ParseIDs parses team ids given as repeated values and/or comma-separated
// lists. An empty input yields the whole allow-list. Non-numeric ids and ids
// outside the allow-list are rejected with a validation error.
func (r *Resolver) ParseIDs(values []string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, apperr.Validation(fmt.Sprintf("team_id %q is not a number", part), apperr.Detail{
					Loc:  []string{"query", "team_id"},
					Msg:  "value is not a valid integer",
					Type: "type_error.integer",
				})
			}
			if !r.IsSales(id) {
				return nil, apperr.Validation(fmt.Sprintf("team_id %d is not a sales team", id), apperr.Detail{
					Loc:  []string{"query", "team_id"},
					Msg:  fmt.Sprintf("unknown team id %d", id),
					Type: "value_error.const",
				})
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return r.SalesIDs(), nil
	}
	return ids, nil
}
