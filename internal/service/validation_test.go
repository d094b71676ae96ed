package service

import (
	"testing"
)

func TestCheckStruct_ReportsFormNames(t *testing.T) {
	errs := checkStruct(&RegisterInput{Username: "ok", Email: "nope"})

	// Keys are the `form` names, not the Go field names.
	for _, field := range []string{"email", "password1", "password2"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("missing error for %q in %v", field, errs)
		}
	}
	if _, ok := errs["Email"]; ok {
		t.Error("errors are keyed by Go field name")
	}
	if _, ok := errs["username"]; ok {
		t.Errorf("unexpected username error %q", errs["username"])
	}
}

func TestValidateUsernameCharacters(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"alice", true},
		{"alice.b+c-d_e@f", true},
		{"Zoë42", true},
		{"with space", false},
		{"semi;colon", false},
		{"slash/", false},
	}
	for _, tt := range tests {
		in := RegisterInput{Username: tt.username}
		_, bad := checkStruct(&in)["username"]
		if bad == tt.valid {
			t.Errorf("username %q: valid = %v, want %v", tt.username, !bad, tt.valid)
		}
	}
}

func TestFormErrorsAdd(t *testing.T) {
	errs := formErrors{}
	if errs.err() != nil {
		t.Fatal("empty formErrors should produce a nil error")
	}

	errs.add("password2", "first.")
	errs.add("password2", "second.")
	if errs["password2"] != "first. second." {
		t.Errorf("combined message = %q", errs["password2"])
	}
	if errs.err() == nil {
		t.Error("non-empty formErrors should produce an error")
	}
}
