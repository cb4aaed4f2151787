package types

import (
	"encoding/base64"
	"testing"
)

func TestValidateParticipantTarget(t *testing.T) {
	t.Parallel()
	hydra := base64.RawStdEncoding.EncodeToString([]byte("ciscospark://us/PEOPLE/a1bae992-11b5-49ab-8c0b-e8e8716e1eb0"))
	cases := []struct {
		in string
		ok bool
	}{
		{"my@email.net", true},
		{"ricky.testerson@test.net", true},
		{hydra, true},
		{"not an email", false},
		{"", false},
		{"missing-at-sign.net", false},
	}
	for _, c := range cases {
		err := ValidateParticipantTarget(c.in)
		if c.ok && err != nil {
			t.Fatalf("expected ok for %q, got %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("expected error for %q", c.in)
		}
	}
}

func TestDecodeHydraID(t *testing.T) {
	t.Parallel()
	id := "a1bae992-11b5-49ab-8c0b-e8e8716e1eb0"
	enc := base64.RawStdEncoding.EncodeToString([]byte("ciscospark://us/PEOPLE/" + id))
	got, err := DecodeHydraID(enc)
	if err != nil {
		t.Fatalf("DecodeHydraID: %v", err)
	}
	if got != id {
		t.Fatalf("expected %q, got %q", id, got)
	}
	if _, err := DecodeHydraID("%%%not-base64%%%"); err == nil {
		t.Fatal("expected error for malformed input")
	}
	if _, err := DecodeHydraID(base64.RawStdEncoding.EncodeToString([]byte("no scheme here"))); err == nil {
		t.Fatal("expected error for non-URI payload")
	}
}

func TestValidateIDPresent(t *testing.T) {
	t.Parallel()
	if err := ValidateIDPresent("abc", "conversationId"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateIDPresent("  ", "conversationId"); err == nil {
		t.Fatal("expected error for blank id")
	}
}
