package acct

import (
	"fmt"
	"net/url"
)

// AuthKind discriminates how an authentication came about.
type AuthKind int

const (
	// AuthKindExistingAccount is produced internally when an account is
	// restored from the secret store.
	AuthKindExistingAccount AuthKind = iota + 1
	AuthKindSignin
	AuthKindSignup
	AuthKindPairing
	// AuthKindRecovered is produced internally after silent recovery from
	// an authentication problem.
	AuthKindRecovered
	// AuthKindOther carries the unrecognized redirect action as Reason.
	AuthKindOther
)

func (k AuthKind) String() string {
	switch k {
	case AuthKindExistingAccount:
		return "existingAccount"
	case AuthKindSignin:
		return "signin"
	case AuthKindSignup:
		return "signup"
	case AuthKindPairing:
		return "pairing"
	case AuthKindRecovered:
		return "recovered"
	case AuthKindOther:
		return "other"
	default:
		return "unknown"
	}
}

// AuthType is the classified origin of an authentication. Reason is set
// only for AuthKindOther.
type AuthType struct {
	Kind   AuthKind
	Reason string
}

func (t AuthType) String() string {
	if t.Kind == AuthKindOther {
		return fmt.Sprintf("other(%s)", t.Reason)
	}
	return t.Kind.String()
}

// DeriveAuthType classifies the redirect's `action` query parameter.
// ExistingAccount and Recovered are never derived from parameters.
func DeriveAuthType(action string) AuthType {
	switch action {
	case "signin":
		return AuthType{Kind: AuthKindSignin}
	case "signup":
		return AuthType{Kind: AuthKindSignup}
	case "pairing":
		return AuthType{Kind: AuthKindPairing}
	default:
		return AuthType{Kind: AuthKindOther, Reason: action}
	}
}

// AuthData carries the OAuth redirect parameters into FinishAuthentication.
type AuthData struct {
	Code   string
	State  string
	Action string
}

// Type returns the classified origin of this authentication.
func (d AuthData) Type() AuthType {
	return DeriveAuthType(d.Action)
}

// stateParam extracts the `state` query parameter from a begin-flow URL.
// The value is compared byte-for-byte against the redirect's state later.
func stateParam(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse auth URL: %w", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		return "", fmt.Errorf("auth URL missing state parameter: %s", rawURL)
	}
	return state, nil
}
