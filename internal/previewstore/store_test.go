package previewstore

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://example.com/blog/post", "example.com-blog-post"},
		{"https://Example.COM/Blog/Post/", "example.com-blog-post"},
		{"https://example.com/post?page=2#top", "example.com-post"},
		{"https://example.com", "example.com"},
	}

	for _, tc := range cases {
		got, err := Slug(tc.in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugRejectsHostlessURL(t *testing.T) {
	for _, in := range []string{"", "not a url", "/relative/path"} {
		if _, err := Slug(in); !errors.Is(err, ErrBadPageURL) {
			t.Fatalf("%q: expected ErrBadPageURL, got %v", in, err)
		}
	}
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "previews"))

	got, err := s.Path("https://example.com/blog/post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(dir, "previews", "example.com-blog-post.png")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// Same URL maps to the same file.
	again, err := s.Path("https://example.com/blog/post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != got {
		t.Fatalf("path not stable: %q vs %q", again, got)
	}
}

func TestPathRequiresDir(t *testing.T) {
	if _, err := New("").Path("https://example.com"); !errors.Is(err, ErrDirRequired) {
		t.Fatalf("expected ErrDirRequired, got %v", err)
	}
}
