package service

import (
	"strings"

	"gorm.io/gorm"
)

// Scope selects which content rows apply: the shared default tier or one hotspot.
// The zero value is the default scope.
type Scope struct {
	name  string
	named bool
}

// DefaultScope is the tier shared by every hotspot (hotspot_name IS NULL).
func DefaultScope() Scope {
	return Scope{}
}

// NamedScope returns the scope of one hotspot. Blank names give DefaultScope.
func NamedScope(name string) Scope {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Scope{}
	}
	return Scope{name: trimmed, named: true}
}

// ScopeOf converts a nullable column value.
func ScopeOf(name *string) Scope {
	if name == nil {
		return Scope{}
	}
	return NamedScope(*name)
}

func (s Scope) IsDefault() bool { return !s.named }

// Name is empty for the default scope.
func (s Scope) Name() string { return s.name }

// Column returns the value stored in hotspot_name (nil for the default tier).
func (s Scope) Column() *string {
	if !s.named {
		return nil
	}
	name := s.name
	return &name
}

func (s Scope) String() string {
	if !s.named {
		return "default"
	}
	return s.name
}

// Apply restricts a query on a table with a hotspot_name column.
func (s Scope) Apply(q *gorm.DB) *gorm.DB {
	if !s.named {
		return q.Where("hotspot_name IS NULL")
	}
	return q.Where("hotspot_name = ?", s.name)
}

// Fallbacks lists scopes in lookup order: the hotspot first, then the default tier.
func (s Scope) Fallbacks() []Scope {
	if !s.named {
		return []Scope{s}
	}
	return []Scope{s, DefaultScope()}
}
