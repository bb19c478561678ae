package protocol

import (
	"encoding/json"
	"fmt"
)

// Recipient is the tagged targeting union: a message names its recipient by
// expert id, by expert name, or by role. Exactly one variant is active; the
// JSON form carries exactly one of the keys expert_id, expert_name, role.
type Recipient struct {
	ExpertID   *int    `json:"expert_id,omitempty"`
	ExpertName *string `json:"expert_name,omitempty"`
	Role       *string `json:"role,omitempty"`
}

// ToExpertID targets a specific expert by registry id.
func ToExpertID(id int) Recipient {
	return Recipient{ExpertID: &id}
}

// ToExpertName targets an expert by name (case-insensitive lookup).
func ToExpertName(name string) Recipient {
	return Recipient{ExpertName: &name}
}

// ToRole targets any idle expert matching a role string.
func ToRole(role string) Recipient {
	return Recipient{Role: &role}
}

// Validate ensures exactly one variant is set.
func (r Recipient) Validate() error {
	n := 0
	if r.ExpertID != nil {
		n++
	}
	if r.ExpertName != nil {
		n++
	}
	if r.Role != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("recipient must set exactly one of expert_id, expert_name, role (got %d)", n)
	}
	return nil
}

// String renders the targeting for failure reasons and logs.
func (r Recipient) String() string {
	switch {
	case r.ExpertID != nil:
		return fmt.Sprintf("id:%d", *r.ExpertID)
	case r.ExpertName != nil:
		return "name:" + *r.ExpertName
	case r.Role != nil:
		return "role:" + *r.Role
	default:
		return "unset"
	}
}

// UnmarshalJSON decodes the union and rejects records that do not carry
// exactly one variant, so malformed outbox files fail at decode time.
func (r *Recipient) UnmarshalJSON(data []byte) error {
	type alias Recipient
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	out := Recipient(a)
	if err := out.Validate(); err != nil {
		return err
	}
	*r = out
	return nil
}
