package state

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/tern/internal/operate"
)

func TestValidate(t *testing.T) {
	existing := []operate.Variable{{Name: "a", Value: "1"}, {Name: "orderId", Value: `"x"`}}

	tests := []struct {
		name  string
		input string
		value string
		want  []ValidationCode
	}{
		{"valid", "b", "2", nil},
		{"valid object", "payload", `{"k":[1,2]}`, nil},
		{"empty name", "", "2", []ValidationCode{CodeEmptyName}},
		{"blank name", "   ", "2", []ValidationCode{CodeEmptyName}},
		{"name with space", "order id", "2", []ValidationCode{CodeInvalidName}},
		{"name with quote", `say"hi`, "2", []ValidationCode{CodeInvalidName}},
		{"duplicate", "a", "2", []ValidationCode{CodeDuplicateName}},
		{"duplicate after trim", " orderId ", "2", []ValidationCode{CodeDuplicateName}},
		{"duplicate is case sensitive", "A", "2", nil},
		{"invalid value", "b", "{oops", []ValidationCode{CodeInvalidValue}},
		{"empty value", "b", "", []ValidationCode{CodeInvalidValue}},
		{"bare word value", "b", "hello", []ValidationCode{CodeInvalidValue}},
		{"both fields", "", "nope", []ValidationCode{CodeEmptyName, CodeInvalidValue}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []ValidationCode
			for _, e := range Validate(tt.input, tt.value, existing) {
				got = append(got, e.Code)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Validate(%q, %q) codes mismatch (-want +got):\n%s", tt.input, tt.value, diff)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	existing := []operate.Variable{{Name: "a", Value: "1"}}

	// Toggling between valid and invalid input always yields the same answer
	// for the same input.
	for i := 0; i < 3; i++ {
		if errs := Validate("a", "x", existing); len(errs) != 2 {
			t.Fatalf("round %d invalid input: got %v", i, errs)
		}
		if errs := Validate("b", "1", existing); len(errs) != 0 {
			t.Fatalf("round %d valid input: got %v", i, errs)
		}
	}
}

func TestValidationErrors_Messages(t *testing.T) {
	errs := Validate("", "{", nil)
	name, ok := errs.Field(FieldName)
	if !ok || name.Message() != "Name has to be filled" {
		t.Fatalf("name error = %+v", name)
	}
	value, ok := errs.Field(FieldValue)
	if !ok || value.Message() != "Value has to be JSON" {
		t.Fatalf("value error = %+v", value)
	}
	want := "validation failed: name: Name has to be filled; value: Value has to be JSON"
	if errs.Error() != want {
		t.Fatalf("Error() = %q, want %q", errs.Error(), want)
	}
}

func TestSameJSON(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{`{"k": 1}`, `{"k":1}`, true},
		{"1", " 1 ", true},
		{`"a b"`, `"a  b"`, false},
		{"1", "2", false},
	}
	for _, tt := range tests {
		if got := sameJSON(tt.a, tt.b); got != tt.want {
			t.Errorf("sameJSON(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
