// Package sha256 includes tests for the envelope digest.
package sha256

import "testing"

func TestHasherHash(t *testing.T) {
	t.Parallel()

	h := New()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{name: "envelope", in: "hello world", want: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.Hash([]byte(tc.in))
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
