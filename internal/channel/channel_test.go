package channel

import "testing"

type wsSet map[string]struct{}

func (w wsSet) HasWorkspace(id string) bool { _, ok := w[id]; return ok }

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
		want Name
	}{
		{"full", "logs:etl:workspace123:workflow456", true, Name{
			Raw: "logs:etl:workspace123:workflow456", Service: "etl", Workspace: "workspace123",
			Resource: "workflow456", HasResource: true,
		}},
		{"no resource", "logs:etl:workspace123", true, Name{
			Raw: "logs:etl:workspace123", Service: "etl", Workspace: "workspace123",
		}},
		{"wrong prefix", "events:etl:workspace123", false, Name{}},
		{"empty service", "logs::workspace123", false, Name{}},
		{"empty workspace", "logs:etl:", false, Name{}},
		{"too few parts", "logs:etl", false, Name{}},
		{"empty resource trailing colon", "logs:etl:workspace123:", false, Name{}},
		{"case sensitive prefix", "Logs:etl:workspace123", false, Name{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.raw)
			if ok != tc.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	if got := Build("etl", "w1", "r1"); got != "logs:etl:w1:r1" {
		t.Fatalf("Build with resource = %q", got)
	}
	if got := Build("etl", "w1", ""); got != "logs:etl:w1" {
		t.Fatalf("Build without resource = %q", got)
	}
}

func TestAuthorizeSubscribe(t *testing.T) {
	ws := wsSet{"workspace123": {}}
	if !AuthorizeSubscribe("logs:etl:workspace123:workflow456", ws) {
		t.Fatal("expected authorized")
	}
	if AuthorizeSubscribe("logs:etl:workspaceZ", ws) {
		t.Fatal("expected unauthorized for foreign workspace")
	}
	if AuthorizeSubscribe("malformed", ws) {
		t.Fatal("expected malformed channel rejected")
	}
}

func TestFilterAuthorizedDedupesAndDropsUnauthorized(t *testing.T) {
	ws := wsSet{"workspace123": {}}
	requested := []string{
		"logs:etl:workspace123:workflow456",
		"logs:etl:workspace123:workflow456",
		"logs:etl:workspaceZ",
		"",
		"   ",
		"bogus",
	}
	got := FilterAuthorized(requested, ws)
	want := []string{"logs:etl:workspace123:workflow456"}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("FilterAuthorized = %v, want %v", got, want)
	}
}

func TestFilterAuthorizedEmptyResult(t *testing.T) {
	ws := wsSet{"workspaceZ": {}}
	got := FilterAuthorized([]string{"logs:etl:workspace123"}, ws)
	if len(got) != 0 {
		t.Fatalf("expected empty authorized set, got %v", got)
	}
}
