package transform

import "testing"

func TestDecodeEntities(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{`{&quot;count&quot;:1}`, `{"count":1}`},
		{`{&#34;a&#34;:&#34;b&#34;}`, `{"a":"b"}`},
		{`&#39;x&#39;`, `'x'`},
		{`&apos;y&apos;`, `'y'`},
		{`&lt;p&gt;`, `<p>`},
		{`a &amp; b`, `a & b`},
		{`plain`, `plain`},
		{``, ``},
	}
	for _, tt := range tests {
		got := DecodeEntities(tt.input)
		if got != tt.want {
			t.Errorf("DecodeEntities(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDecodeEntitiesNoDoubleDecode(t *testing.T) {
	// &amp; must decode last: an escaped reference stays a reference.
	got := DecodeEntities(`&amp;quot;`)
	if got != `&quot;` {
		t.Fatalf("expected &quot; literal, got: %s", got)
	}
	got = DecodeEntities(`&amp;amp;`)
	if got != `&amp;` {
		t.Fatalf("expected &amp; literal, got: %s", got)
	}
}
