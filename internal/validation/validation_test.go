package validation

import "testing"

type sample struct {
	Name string   `validate:"required,notblank,max=10"`
	Tags []string `validate:"max=2,dive,max=4"`
}

func TestStructNotBlank(t *testing.T) {
	err := Struct(sample{Name: "   "})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := Message(err, Messages{"Name": {"notblank": "name is required"}}, "invalid")
	if msg.Error() != "name is required" {
		t.Fatalf("unexpected message: %v", msg)
	}
}

func TestMessageWildcardAndFallback(t *testing.T) {
	err := Struct(sample{Name: "ok", Tags: []string{"a", "b", "c"}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := Message(err, Messages{"Tags": {"*": "bad tags"}}, "invalid"); got.Error() != "bad tags" {
		t.Fatalf("unexpected message: %v", got)
	}
	if got := Message(err, nil, "invalid"); got.Error() != "invalid" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestStructValid(t *testing.T) {
	if err := Struct(sample{Name: "go", Tags: []string{"go"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
