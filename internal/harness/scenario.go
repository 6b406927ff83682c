package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: the scripted backend world
// plus the operations to drive through the manager.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StoredAccount seeds the secret store with an authenticated blob,
	// as if a previous run had persisted one.
	StoredAccount bool `yaml:"stored_account,omitempty"`

	// Profile is the profile every scripted handle serves. Absent means
	// profile fetches fail.
	Profile *ProfileSpec `yaml:"profile,omitempty"`

	// Devices is the device list every scripted handle serves.
	Devices []DeviceSpec `yaml:"devices,omitempty"`

	// FlowStates fixes the state parameters of successive Begin* calls.
	FlowStates []string `yaml:"flow_states,omitempty"`

	// AuthorizationInactive scripts CheckAuthorizationStatus to report a
	// dead session, making injected auth errors unrecoverable.
	AuthorizationInactive bool `yaml:"authorization_inactive,omitempty"`

	// Pushes maps raw push payloads to the tabs they decode to.
	Pushes []PushSpec `yaml:"pushes,omitempty"`

	// LocalDevice overrides the manager's device config.
	LocalDevice *LocalDeviceSpec `yaml:"local_device,omitempty"`

	// Steps is the ordered list of operations to execute.
	Steps []Step `yaml:"steps"`
}

// ProfileSpec scripts the backend profile.
type ProfileSpec struct {
	UID         string `yaml:"uid"`
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name,omitempty"`
}

// DeviceSpec scripts one constellation member.
type DeviceSpec struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type,omitempty"`
	Current bool   `yaml:"current,omitempty"`
}

// PushSpec scripts the decode result of one raw push payload.
type PushSpec struct {
	Payload string    `yaml:"payload"`
	Tabs    []TabSpec `yaml:"tabs"`
}

// TabSpec is one tab inside a push or send step.
type TabSpec struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// LocalDeviceSpec overrides the manager's device config.
type LocalDeviceSpec struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Capabilities []string `yaml:"capabilities"`
}

// Step operation names.
const (
	OpInitialize          = "initialize"
	OpBeginAuthentication = "begin_authentication"
	OpBeginPairing        = "begin_pairing"
	OpFinishAuth          = "finish_authentication"
	OpRefreshProfile      = "refresh_profile"
	OpInjectAuthError     = "inject_auth_error"
	OpLogout              = "logout"
	OpSendTab             = "send_tab"
	OpDeliverPush         = "deliver_push"
	OpPollDevices         = "poll_devices"
	OpSetDeviceName       = "set_device_name"
	OpRefreshDevices      = "refresh_devices"
)

// Step is one operation in the scenario flow.
type Step struct {
	Op string `yaml:"op"`

	// finish_authentication parameters.
	Code   string `yaml:"code,omitempty"`
	State  string `yaml:"state,omitempty"`
	Action string `yaml:"action,omitempty"`

	// begin_pairing parameter.
	PairingURL string `yaml:"pairing_url,omitempty"`

	// send_tab parameters.
	Target string `yaml:"target,omitempty"`
	Title  string `yaml:"title,omitempty"`
	URL    string `yaml:"url,omitempty"`

	// deliver_push parameter.
	Payload string `yaml:"payload,omitempty"`

	// set_device_name parameter.
	Name string `yaml:"name,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpInitialize, OpBeginAuthentication, OpRefreshProfile,
			OpInjectAuthError, OpLogout, OpPollDevices, OpRefreshDevices:
			// no parameters
		case OpBeginPairing:
			if step.PairingURL == "" {
				return fmt.Errorf("steps[%d]: pairing_url is required for %s", i, step.Op)
			}
		case OpFinishAuth:
			if step.State == "" {
				return fmt.Errorf("steps[%d]: state is required for %s", i, step.Op)
			}
		case OpSendTab:
			if step.Target == "" || step.URL == "" {
				return fmt.Errorf("steps[%d]: target and url are required for %s", i, step.Op)
			}
		case OpDeliverPush:
			if step.Payload == "" {
				return fmt.Errorf("steps[%d]: payload is required for %s", i, step.Op)
			}
		case OpSetDeviceName:
			if step.Name == "" {
				return fmt.Errorf("steps[%d]: name is required for %s", i, step.Op)
			}
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
	}

	return nil
}
