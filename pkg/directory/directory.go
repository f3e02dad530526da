// Package directory provides the organization directory consumed by the
// permission and discovery services: which agents exist, which teams they
// belong to, and which team owns the organization-wide library.
//
// The directory is constructed explicitly at startup and injected into the
// components that need it; there is no package-level singleton, so tests can
// build an isolated directory per case.
package directory

import (
	"fmt"
	"sort"
)

// Directory answers membership questions about one organization.
//
// Implementations must be safe for concurrent use; the permission service
// calls into the directory on every access check.
type Directory interface {
	// TeamsOf returns the ids of the teams the agent belongs to, sorted.
	// Unknown agents have no teams.
	TeamsOf(agentID string) []string

	// IsMember reports whether the agent is a member of the team
	IsMember(agentID, teamID string) bool

	// Agents returns all agent ids in the organization, sorted
	Agents() []string

	// Teams returns all team ids in the organization, sorted
	Teams() []string

	// LibraryTeam returns the id of the reserved team whose shared segment
	// is the organization-wide library, or "" when none is configured
	LibraryTeam() string
}

// Team declares one team and its member agents.
type Team struct {
	ID      string
	Members []string
}

// MemoryDirectory is an immutable in-memory Directory built from
// configuration at startup.
//
// Immutability after construction is what makes the concurrent-use contract
// trivial: all methods only read.
type MemoryDirectory struct {
	agents      []string
	teams       []string
	memberships map[string]map[string]bool // teamID -> agentID -> member
	agentTeams  map[string][]string        // agentID -> sorted team ids
	libraryTeam string
}

// NewMemoryDirectory builds a directory from the declared agents and teams.
//
// Every team member must be a declared agent and the library team, when
// given, must be a declared team. These are configuration errors, not
// runtime conditions, so they fail construction.
func NewMemoryDirectory(agents []string, teams []Team, libraryTeam string) (*MemoryDirectory, error) {
	known := make(map[string]bool, len(agents))
	for _, id := range agents {
		if id == "" {
			return nil, fmt.Errorf("directory: empty agent id")
		}
		if known[id] {
			return nil, fmt.Errorf("directory: duplicate agent %q", id)
		}
		known[id] = true
	}

	d := &MemoryDirectory{
		agents:      append([]string(nil), agents...),
		memberships: make(map[string]map[string]bool, len(teams)),
		agentTeams:  make(map[string][]string),
		libraryTeam: libraryTeam,
	}
	sort.Strings(d.agents)

	for _, team := range teams {
		if team.ID == "" {
			return nil, fmt.Errorf("directory: empty team id")
		}
		if _, dup := d.memberships[team.ID]; dup {
			return nil, fmt.Errorf("directory: duplicate team %q", team.ID)
		}
		members := make(map[string]bool, len(team.Members))
		for _, agentID := range team.Members {
			if !known[agentID] {
				return nil, fmt.Errorf("directory: team %q member %q is not a declared agent", team.ID, agentID)
			}
			members[agentID] = true
			d.agentTeams[agentID] = append(d.agentTeams[agentID], team.ID)
		}
		d.memberships[team.ID] = members
		d.teams = append(d.teams, team.ID)
	}
	sort.Strings(d.teams)
	for _, ids := range d.agentTeams {
		sort.Strings(ids)
	}

	if libraryTeam != "" {
		if _, ok := d.memberships[libraryTeam]; !ok {
			return nil, fmt.Errorf("directory: library team %q is not a declared team", libraryTeam)
		}
	}

	return d, nil
}

func (d *MemoryDirectory) TeamsOf(agentID string) []string {
	return append([]string(nil), d.agentTeams[agentID]...)
}

func (d *MemoryDirectory) IsMember(agentID, teamID string) bool {
	return d.memberships[teamID][agentID]
}

func (d *MemoryDirectory) Agents() []string {
	return append([]string(nil), d.agents...)
}

func (d *MemoryDirectory) Teams() []string {
	return append([]string(nil), d.teams...)
}

func (d *MemoryDirectory) LibraryTeam() string {
	return d.libraryTeam
}
