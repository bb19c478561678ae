package protocol

import (
	"encoding/json"
	"testing"
)

func TestRecipientMarshalExactlyOneKey(t *testing.T) {
	cases := []struct {
		name string
		r    Recipient
		want string
	}{
		{"by id", ToExpertID(7), `{"expert_id":7}`},
		{"by name", ToExpertName("alice"), `{"expert_name":"alice"}`},
		{"by role", ToRole("reviewer"), `{"role":"reviewer"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data, err := json.Marshal(c.r)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != c.want {
				t.Fatalf("got %s, want %s", data, c.want)
			}
		})
	}
}

func TestRecipientUnmarshalRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", `{}`},
		{"two variants", `{"expert_id":1,"role":"reviewer"}`},
		{"all variants", `{"expert_id":1,"expert_name":"a","role":"r"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var r Recipient
			if err := json.Unmarshal([]byte(c.in), &r); err == nil {
				t.Fatalf("expected unmarshal of %s to fail", c.in)
			}
		})
	}
}

func TestRecipientString(t *testing.T) {
	if got := ToExpertID(3).String(); got != "id:3" {
		t.Errorf("got %q, want id:3", got)
	}
	if got := ToExpertName("bob").String(); got != "name:bob" {
		t.Errorf("got %q, want name:bob", got)
	}
	if got := ToRole("analyst").String(); got != "role:analyst" {
		t.Errorf("got %q, want role:analyst", got)
	}
	if got := (Recipient{}).String(); got != "unset" {
		t.Errorf("got %q, want unset", got)
	}
}
