package merge

import (
	"reflect"
	"testing"
)

func TestReplaceTokens(t *testing.T) {
	cases := []struct {
		name    string
		content string
		tokens  TokenMap
		want    string
	}{
		{"no tags", "plain text", TokenMap{"x": "1"}, "plain text"},
		{"nil tokens", "Hi [Name]", nil, "Hi [Name]"},
		{"empty tokens", "Hi [Name]", TokenMap{}, "Hi [Name]"},
		{"empty content", "", TokenMap{"Name": "Bob"}, ""},
		{"case insensitive key", "[Foo]", TokenMap{"foo": "bar"}, "bar"},
		{"case insensitive tag", "[foo] [FOO] [fOo]", TokenMap{"Foo": "bar"}, "bar bar bar"},
		{"unicode case", "[ÄRGER]", TokenMap{"ärger": "x"}, "x"},
		{"unresolved kept", "[x][y]", TokenMap{"x": "1"}, "1[y]"},
		{"every occurrence", "[n], [n] and [n]", TokenMap{"n": "a"}, "a, a and a"},
		{"name is literal", "[a.b][axb]", TokenMap{"a.b": "X"}, "X[axb]"},
		{"name with metacharacters", "[(x)+*?]", TokenMap{"(x)+*?": "ok"}, "ok"},
		{"value is literal", "[n]", TokenMap{"n": "$1 $$ ${n}"}, "$1 $$ ${n}"},
		{"bare name untouched", "Name [Name]", TokenMap{"Name": "Bob"}, "Name Bob"},
		{"empty name", "a[]b", TokenMap{"": "-"}, "a-b"},
		{"empty value", "Hi [Name]!", TokenMap{"Name": ""}, "Hi !"},
		{"invalid utf8 name", "Hi [\xff]", TokenMap{"\xff": "x"}, "Hi x"},
		{"invalid utf8 bytes each count", "[\xff\xfe] [\xff]", TokenMap{"\xff\xfe": "y"}, "y [\xff]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReplaceTokens(tc.content, tc.tokens); got != tc.want {
				t.Errorf("ReplaceTokens(%q) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}

func TestReplaceTokensOverlappingKeysIsDeterministic(t *testing.T) {
	tokens := TokenMap{"a": "[b]", "b": "2", "c": "[a]"}

	first := ReplaceTokens("[a] [c]", tokens)
	for i := 0; i < 50; i++ {
		if got := ReplaceTokens("[a] [c]", tokens); got != first {
			t.Fatalf("run %d: got %q, want %q", i, got, first)
		}
	}
	// a, b, c in order: [a]->[b]->2, then [c]->[a] which is not revisited.
	if first != "2 [a]" {
		t.Errorf("got %q, want %q", first, "2 [a]")
	}
}

func TestReplaceTokensFixedPoint(t *testing.T) {
	tokens := TokenMap{"Name": "Bob", "Team": "Ops"}
	once := ReplaceTokens("Dear [Name] of [team]", tokens)
	if len(Tags(once)) != 0 {
		t.Fatalf("expected no tags left, got %q", once)
	}
	if twice := ReplaceTokens(once, tokens); twice != once {
		t.Errorf("second pass changed output: %q -> %q", once, twice)
	}
}

func TestFormatRecipients(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want string
	}{
		{"nil", nil, ""},
		{"empty", []string{}, ""},
		{"single", []string{"a"}, "[a]"},
		{"ordered", []string{"a", "b"}, "[a];[b]"},
		{"order preserved", []string{"z", "a", "m"}, "[z];[a];[m]"},
		{"no escaping", []string{"x]y", "a;b"}, "[x]y];[a;b]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatRecipients(tc.in); got != tc.want {
				t.Errorf("FormatRecipients(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tmpl := Template{
		To:      []string{"Alice"},
		Subject: "Hi [Name]",
		Body:    "Dear [Name], see [x]",
	}

	got := Resolve(tmpl, TokenMap{"Name": "Bob"}, TokenMap{"Alice": "alice@x.com"})
	want := Message{
		To:      "alice@x.com",
		Subject: "Hi Bob",
		Body:    "Dear Bob, see [x]",
	}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestResolveNeverCrossAppliesMaps(t *testing.T) {
	tmpl := Template{
		To:      []string{"Alice", "Carol"},
		Cc:      []string{"Dave"},
		Subject: "[Alice]",
		Body:    "[Name]",
	}
	tokens := TokenMap{"Name": "Bob", "Carol": "body-map"}
	recipients := TokenMap{"alice": "alice@x.com", "Dave": "dave@x.com", "Name": "recipient-map"}

	got := Resolve(tmpl, tokens, recipients)

	if got.To != "alice@x.com;[Carol]" {
		t.Errorf("To = %q", got.To)
	}
	if got.Cc != "dave@x.com" {
		t.Errorf("Cc = %q", got.Cc)
	}
	if got.Subject != "[Alice]" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if got.Body != "Bob" {
		t.Errorf("Body = %q", got.Body)
	}
}

func TestResolveEmptyInputs(t *testing.T) {
	got := Resolve(Template{}, nil, nil)
	if got != (Message{}) {
		t.Errorf("Resolve(empty) = %+v, want zero Message", got)
	}
}

func TestTags(t *testing.T) {
	got := Tags("[a] x [b] [a] [[c]]")
	want := []string{"[a]", "[b]", "[c]"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tags() = %q, want %q", got, want)
	}

	if tags := Tags("no tags"); tags != nil {
		t.Errorf("expected nil, got %q", tags)
	}
}

func TestMessageUnresolved(t *testing.T) {
	m := Message{
		To:      "a@x.com;[Carol]",
		Subject: "Hi [x]",
		Body:    "[x] and [y]",
	}
	want := []string{"[Carol]", "[x]", "[y]"}
	if got := m.Unresolved(); !reflect.DeepEqual(got, want) {
		t.Errorf("Unresolved() = %q, want %q", got, want)
	}
}
