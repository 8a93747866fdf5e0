package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestApprovalLogValidate(t *testing.T) {
	valid := ApprovalLog{Module: ModuleQuote, RefID: uuid.New(), Action: ApprovalSubmit}
	assert.NoError(t, valid.Validate())

	missingModule := valid
	missingModule.Module = ""
	assert.Error(t, missingModule.Validate())

	missingRef := valid
	missingRef.RefID = uuid.Nil
	assert.Error(t, missingRef.Validate())

	missingAction := valid
	missingAction.Action = ""
	assert.Error(t, missingAction.Validate())
}
