package schemas_test

import (
	"fmt"
	"testing"

	// Third party libraries for expressive and robust assertions.
	"github.com/stretchr/testify/assert"

	// Import the package we are testing.
	"github.com/xkilldash9x/skillgraph/api/schemas"
)

// TestConstants verifies that all defined constants hold their expected string values.
// This is a good way to prevent accidental changes to values that might be used in APIs.
func TestConstants(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		constant interface{} // Use interface{} to handle various constant types
		expected string
	}{
		// NodeTypes
		{"NodeCandidate", schemas.NodeCandidate, "candidate"},
		{"NodeJob", schemas.NodeJob, "job"},
		{"NodeSkill", schemas.NodeSkill, "skill"},
		{"NodeRole", schemas.NodeRole, "role"},
		{"NodeCompany", schemas.NodeCompany, "company"},
		{"NodeDegree", schemas.NodeDegree, "degree"},
		{"NodeInstitution", schemas.NodeInstitution, "institution"},
		{"NodeResponsibility", schemas.NodeResponsibility, "responsibility"},
		{"NodeProject", schemas.NodeProject, "project"},
		{"NodeCertification", schemas.NodeCertification, "certification"},
		{"NodeOther", schemas.NodeOther, "other"},

		// Relationships
		{"RelationshipHasSkill", schemas.RelationshipHasSkill, "has_skill"},
		{"RelationshipRequiresSkill", schemas.RelationshipRequiresSkill, "requires_skill"},
		{"RelationshipWorkedAs", schemas.RelationshipWorkedAs, "worked_as"},
		{"RelationshipAtCompany", schemas.RelationshipAtCompany, "at_company"},
		{"RelationshipRelatedTo", schemas.RelationshipRelatedTo, "related_to"},

		// Value kinds
		{"KindNull", schemas.KindNull, "null"},
		{"KindList", schemas.KindList, "list"},
		{"KindMap", schemas.KindMap, "map"},
		{"KindUnknown", schemas.Kind(42), "kind(42)"},
	}

	for _, tc := range testCases {
		// Capture range variable for parallel execution.
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Dynamically resolve the string representation of the constant.
			var actual string
			if stringer, ok := tt.constant.(fmt.Stringer); ok {
				actual = stringer.String()
			} else {
				// Fallback for basic types like string aliases.
				actual = fmt.Sprintf("%v", tt.constant)
			}
			assert.Equal(t, tt.expected, actual)
		})
	}
}
