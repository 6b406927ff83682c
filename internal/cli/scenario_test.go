package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signinScenario = `
name: cli-signin
description: sign in through the scripted backend
profile:
  uid: uid-1
  email: jo@example.com
flow_states:
  - ABC
steps:
  - op: initialize
  - op: begin_authentication
  - op: finish_authentication
    code: code-1
    state: ABC
    action: signin
`

func TestScenario_TextOutput(t *testing.T) {
	path := writeTempFile(t, "scenario.yaml", signinScenario)

	out, err := execute(t, "scenario", path)
	require.NoError(t, err)
	assert.Contains(t, out, "scenario cli-signin")
	assert.Contains(t, out, "onAuthenticated(signin)")
	assert.Contains(t, out, "final state: authenticatedWithProfile")
}

func TestScenario_JSONOutput(t *testing.T) {
	path := writeTempFile(t, "scenario.yaml", signinScenario)

	out, err := execute(t, "--format", "json", "scenario", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"final_state": "authenticatedWithProfile"`)
	assert.Contains(t, out, `"onProfileUpdated"`)
}

func TestScenario_ExpectStateMismatch(t *testing.T) {
	path := writeTempFile(t, "scenario.yaml", signinScenario)

	_, err := execute(t, "scenario", path, "--expect-state", "notAuthenticated")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected notAuthenticated")
}

func TestScenario_MissingFile(t *testing.T) {
	_, err := execute(t, "scenario", "missing.yaml")
	assert.Error(t, err)
}
