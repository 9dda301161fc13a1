package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "two words", input: "Hello World", want: "hello-world"},
		{name: "already slug", input: "web-dev", want: "web-dev"},
		{name: "punctuation run collapsed", input: "Go, Rust & C++", want: "go-rust-c-"},
		{name: "digits kept", input: "Top 10 Tips", want: "top-10-tips"},
		{name: "leading and trailing runs", input: "  Travel  ", want: "-travel-"},
		{name: "accents are outside a-z", input: "Café Culture", want: "caf-culture"},
		{name: "only symbols", input: "!!!", want: "-"},
		{name: "empty", input: "", want: ""},
		{name: "mixed case", input: "JavaScript", want: "javascript"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.input); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMake_Idempotent(t *testing.T) {
	inputs := []string{
		"Hello World",
		"  spaced   out  ",
		"Ünïcödé Title",
		"a--b",
		"already-a-slug",
		"#$%",
		"Mixed 123 & more",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := Make(in)
			if twice := Make(once); twice != once {
				t.Errorf("Make(Make(%q)) = %q, want %q", in, twice, once)
			}
		})
	}
}
