package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type Account struct{ ID string }

type LinkedIdentity struct{ ID string }

type auditEntry struct{}

func (auditEntry) TableName() string { return "audit_log" }

func TestTableName(t *testing.T) {
	tests := []struct {
		name  string
		model any
		want  string
	}{
		{"struct", Account{}, "accounts"},
		{"pointer", &Account{}, "accounts"},
		{"slice", []*Account{}, "accounts"},
		{"multi word", LinkedIdentity{}, "linked_identities"},
		{"namer", auditEntry{}, "audit_log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TableName(tt.model))
		})
	}
}
