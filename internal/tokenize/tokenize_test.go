package tokenize

import "testing"

func TestFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		record string
		want   []string
	}{
		{name: "plain", record: "1,hello,3", want: []string{"1", "hello", "3"}},
		{name: "quoted field", record: `2,"wo""rld"`, want: []string{"2", `wo""rld`}},
		{name: "empty fields", record: "a,,c", want: []string{"a", "", "c"}},
		{name: "trailing empty field", record: "a,b,", want: []string{"a", "b", ""}},
		{name: "single field", record: "onlyone", want: []string{"onlyone"}},
		{name: "fully quoted empty", record: `""`, want: []string{""}},
		{name: "quoted field with embedded newline", record: "\"multi\nline\",2", want: []string{"multi\nline", "2"}},
		{name: "empty record", record: "", want: []string{""}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Fields([]byte(tc.record))
			if len(got) != len(tc.want) {
				t.Fatalf("Fields(%q) = %q, want %q", tc.record, toStrings(got), tc.want)
			}
			for i := range tc.want {
				if string(got[i]) != tc.want[i] {
					t.Errorf("Fields(%q)[%d] = %q, want %q", tc.record, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func toStrings(fs [][]byte) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
