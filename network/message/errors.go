package message

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaViolation is matched by every *SchemaError.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrNotRegistered is returned when a message type has no registry entry.
	ErrNotRegistered = errors.New("message not registered")
)

// Rule names the schema rule a Violation breaks.
type Rule string

const (
	// RuleSuffix is broken by a message name with none of the role suffixes.
	RuleSuffix Rule = "suffix"
	// RuleStatus is broken by a status field that is not a singular signed integer.
	RuleStatus Rule = "status"
	// RuleFieldCase is broken by a field name that is not all lowercase.
	RuleFieldCase Rule = "field-case"
)

// Violation is one schema rule broken by one type.
type Violation struct {
	Type   string
	Rule   Rule
	Detail string
}

// Collision is a set of types whose names hash to the same stable id.
type Collision struct {
	ID    uint32
	Names []string
}

// SchemaError aggregates every violation and collision found while building a registry.
type SchemaError struct {
	Violations []Violation
	Collisions []Collision
}

func (e *SchemaError) empty() bool {
	return len(e.Violations) == 0 && len(e.Collisions) == 0
}

func (e *SchemaError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d problem(s)", ErrSchemaViolation, len(e.Violations)+len(e.Collisions))
	for _, v := range e.Violations {
		fmt.Fprintf(&sb, "\n  %s [%s]: %s", v.Type, v.Rule, v.Detail)
	}
	for _, c := range e.Collisions {
		fmt.Fprintf(&sb, "\n  id collision 0x%08X:", c.ID)
		for _, n := range c.Names {
			fmt.Fprintf(&sb, " %s:%d", n, c.ID)
		}
	}
	return sb.String()
}

// Is makes errors.Is(err, ErrSchemaViolation) hold.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// Types returns the distinct type names named by the error, in report order.
func (e *SchemaError) Types() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, v := range e.Violations {
		add(v.Type)
	}
	for _, c := range e.Collisions {
		for _, n := range c.Names {
			add(n)
		}
	}
	return out
}
