package rbac

import (
	"fmt"
	"sort"
)

// Config holds all RBAC configuration
type Config struct {
	Roles        []RoleDefinition
	Resources    []Resource
	Actions      []Action
	Capabilities map[Role]map[Resource][]Action
}

// Validate checks internal consistency of the Config. Capabilities must be
// monotonic: a role never lacks something a lower role is granted.
func (c *Config) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf(errConfigRolesEmpty)
	}
	if len(c.Resources) == 0 {
		return fmt.Errorf(errConfigResourcesEmpty)
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf(errConfigActionsEmpty)
	}
	if len(c.Capabilities) == 0 {
		return fmt.Errorf(errConfigCapabilitiesEmpty)
	}

	roleNames := make(map[Role]bool, len(c.Roles))
	roleLevels := make(map[int]Role, len(c.Roles))
	for _, rd := range c.Roles {
		if rd.Name == "" {
			return fmt.Errorf(errConfigRoleNameEmpty)
		}
		if roleNames[rd.Name] {
			return fmt.Errorf(errConfigDuplicateRoleNameFmt, rd.Name)
		}
		if existing, dup := roleLevels[rd.Level]; dup {
			return fmt.Errorf(errConfigDuplicateRoleLevelFmt, rd.Level, existing, rd.Name)
		}
		roleNames[rd.Name] = true
		roleLevels[rd.Level] = rd.Name
	}

	resSet := make(map[Resource]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r == "" {
			return fmt.Errorf(errConfigResourceEmpty)
		}
		if resSet[r] {
			return fmt.Errorf(errConfigDuplicateResourceFmt, r)
		}
		resSet[r] = true
	}

	actSet := make(map[Action]bool, len(c.Actions))
	for _, a := range c.Actions {
		if a == "" {
			return fmt.Errorf(errConfigActionEmpty)
		}
		if actSet[a] {
			return fmt.Errorf(errConfigDuplicateActionFmt, a)
		}
		actSet[a] = true
	}

	for role, resources := range c.Capabilities {
		if !roleNames[role] {
			return fmt.Errorf(errConfigCapabilityUnknownRoleFmt, role)
		}
		for res, actions := range resources {
			if !resSet[res] {
				return fmt.Errorf(errConfigCapabilityUnknownResourceFmt, role, res)
			}
			for _, act := range actions {
				if !actSet[act] {
					return fmt.Errorf(errConfigCapabilityUnknownActionFmt, role, res, act)
				}
			}
		}
	}

	return c.validateMonotonic()
}

func (c *Config) validateMonotonic() error {
	ordered := make([]RoleDefinition, len(c.Roles))
	copy(ordered, c.Roles)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Level < ordered[j].Level })

	for i := 1; i < len(ordered); i++ {
		lower, higher := ordered[i-1].Name, ordered[i].Name
		for res, actions := range c.Capabilities[lower] {
			granted := make(map[Action]bool)
			for _, a := range c.Capabilities[higher][res] {
				granted[a] = true
			}
			for _, a := range actions {
				if !granted[a] {
					return fmt.Errorf(errConfigNotMonotonicFmt, higher, res, a, lower)
				}
			}
		}
	}
	return nil
}
