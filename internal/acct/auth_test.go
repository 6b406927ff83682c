package acct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAuthType(t *testing.T) {
	tests := []struct {
		action string
		want   AuthType
	}{
		{"signin", AuthType{Kind: AuthKindSignin}},
		{"signup", AuthType{Kind: AuthKindSignup}},
		{"pairing", AuthType{Kind: AuthKindPairing}},
		{"email", AuthType{Kind: AuthKindOther, Reason: "email"}},
		{"", AuthType{Kind: AuthKindOther, Reason: ""}},
	}

	for _, tc := range tests {
		t.Run(tc.action, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveAuthType(tc.action))
		})
	}
}

func TestAuthType_String(t *testing.T) {
	assert.Equal(t, "signin", AuthType{Kind: AuthKindSignin}.String())
	assert.Equal(t, "existingAccount", AuthType{Kind: AuthKindExistingAccount}.String())
	assert.Equal(t, "recovered", AuthType{Kind: AuthKindRecovered}.String())
	assert.Equal(t, "other(email)", AuthType{Kind: AuthKindOther, Reason: "email"}.String())
}

func TestStateParam(t *testing.T) {
	state, err := stateParam("https://accounts.example.com/oauth/flow?state=ABC&action=signin")
	require.NoError(t, err)
	assert.Equal(t, "ABC", state)
}

func TestStateParam_Missing(t *testing.T) {
	_, err := stateParam("https://accounts.example.com/oauth/flow?action=signin")
	assert.Error(t, err)
}

func TestStateParam_Malformed(t *testing.T) {
	_, err := stateParam("://not-a-url")
	assert.Error(t, err)
}
