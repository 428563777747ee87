package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindings_Helpers(t *testing.T) {
	fs := Findings{
		{Check: CheckIncome, Severity: SeverityInfo, Message: "minor income difference"},
		{Check: CheckIdentity, Severity: SeverityFail, Message: "id mismatch"},
		{Check: CheckOwnership, Severity: SeverityWarning, Message: "id not mentioned"},
		{Check: CheckFamilySize, Severity: SeverityFail, Message: "family size mismatch"},
	}

	assert.True(t, fs.HasFail())
	assert.Len(t, fs.Fails(), 2)
	assert.Equal(t, "id mismatch", fs.Fails()[0].Message)
	assert.Len(t, fs.BySeverity(SeverityWarning), 1)
	assert.Equal(t, "id mismatch; family size mismatch", fs.Summary())
	assert.Equal(t, []string{"minor income difference", "id mismatch", "id not mentioned", "family size mismatch"}, fs.Messages())
}

func TestFindings_Empty(t *testing.T) {
	var fs Findings
	assert.False(t, fs.HasFail())
	assert.Empty(t, fs.Fails())
	assert.Equal(t, "", fs.Summary())
	assert.Empty(t, fs.Messages())
}
