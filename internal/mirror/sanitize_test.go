package mirror

import "testing"

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Week 1: Intro?", "Week 1 Intro"},
		{`a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"  padded  ", "padded"},
		{"line\nbreak", "line break"},
		{"line\r\nbreak", "line  break"},
		{"plain title", "plain title"},
		{`<>:"/\|?*`, ""},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, expected %q", c.in, got, c.want)
		}
	}
}

func TestNameRegistryCollisions(t *testing.T) {
	reg := newNameRegistry()

	a := reg.Claim("f/1", "Week 1: Intro")
	b := reg.Claim("f/2", "Week 1? Intro")
	c := reg.Claim("f/3", "Week 1 Intro")

	if a != "Week 1 Intro" {
		t.Errorf("Expected first claim to keep the sanitized name, got %q", a)
	}
	if b != "Week 1 Intro (2)" {
		t.Errorf("Expected second claim to get suffix (2), got %q", b)
	}
	if c != "Week 1 Intro (3)" {
		t.Errorf("Expected third claim to get suffix (3), got %q", c)
	}
}

func TestNameRegistrySameIDSameName(t *testing.T) {
	reg := newNameRegistry()

	first := reg.Claim("d/42", "Slides")
	again := reg.Claim("d/42", "Slides")
	if first != again {
		t.Errorf("Expected the same id to claim the same name, got %q then %q", first, again)
	}
}

func TestNameRegistryEmptyTitle(t *testing.T) {
	reg := newNameRegistry()
	if got := reg.Claim("f/1", "???"); got != "untitled" {
		t.Errorf("Expected untitled fallback, got %q", got)
	}
}
