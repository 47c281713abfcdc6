package validation

import "testing"

func TestEventCode(t *testing.T) {
	for _, ok := range []string{"0000", "4821", "9999"} {
		if err := EventCode(ok); err != nil {
			t.Errorf("EventCode(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "1", "123", "12345", "12a4", " 123", "12.4"} {
		if err := EventCode(bad); err == nil {
			t.Errorf("EventCode(%q) should fail", bad)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"  Jane@Example.COM ": "jane@example.com",
		"jane@example.com":    "jane@example.com",
		"":                    "",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmail(t *testing.T) {
	if err := Email("jane@example.com"); err != nil {
		t.Fatal(err)
	}
	for _, bad := range []string{"", "nope", "@example.com"} {
		if err := Email(bad); err == nil {
			t.Errorf("Email(%q) should fail", bad)
		}
	}
}
