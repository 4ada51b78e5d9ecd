package plan

import (
	"reflect"
	"testing"
)

func TestBuildFullDeploy(t *testing.T) {
	req, err := Build(OpFullDeploy, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := PhaseFlags{Docker: true, Compose: true, Traefik: true, Nginx: true}
	if req.Phases != want {
		t.Errorf("phases = %+v, want %+v", req.Phases, want)
	}
	if len(req.Tags) != 0 {
		t.Errorf("tags = %v, want empty filter", req.Tags)
	}
}

func TestBuildDockerOnly(t *testing.T) {
	req, err := Build(OpDockerOnly, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := PhaseFlags{Docker: true, Compose: true}
	if req.Phases != want {
		t.Errorf("phases = %+v, want %+v", req.Phases, want)
	}
	if !reflect.DeepEqual(req.Tags, []string{"docker"}) {
		t.Errorf("tags = %v, want [docker]", req.Tags)
	}
}

func TestBuildWebOnly(t *testing.T) {
	req, err := Build(OpWebOnly, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := PhaseFlags{Traefik: true, Nginx: true}
	if req.Phases != want {
		t.Errorf("phases = %+v, want %+v", req.Phases, want)
	}
	if !reflect.DeepEqual(req.Tags, []string{"traefik", "nginx", "compose"}) {
		t.Errorf("tags = %v", req.Tags)
	}
}

func TestBuildUpdate(t *testing.T) {
	req, err := Build(OpUpdate, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := PhaseFlags{Docker: true, Compose: true, Traefik: true, Nginx: true}
	if req.Phases != want {
		t.Errorf("phases = %+v, want %+v", req.Phases, want)
	}
	if !reflect.DeepEqual(req.Tags, []string{"config", "compose"}) {
		t.Errorf("tags = %v, want [config compose]", req.Tags)
	}
}

func TestBuildHeadersHasNoInstallPhases(t *testing.T) {
	req, err := Build(OpConfigureHeaders, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Phases != (PhaseFlags{}) {
		t.Errorf("phases = %+v, want none", req.Phases)
	}
}

func TestBuildRejectsNonApplyOps(t *testing.T) {
	for _, op := range []Operation{OpStatus, OpInfo, OpRemove} {
		if _, err := Build(op, nil); err == nil {
			t.Errorf("Build(%s) should fail", op)
		}
	}
}

func TestHasTag(t *testing.T) {
	empty := Request{}
	if !empty.HasTag("docker") {
		t.Error("empty filter should pass everything")
	}

	req := Request{Tags: []string{"traefik", "nginx", "compose"}}
	if !req.HasTag("traefik", "config") {
		t.Error("should pass on any matching tag")
	}
	if req.HasTag("docker") {
		t.Error("docker unit should be filtered out")
	}
}

func TestParseOverrides(t *testing.T) {
	vars, err := ParseOverrides([]string{"domain=example.org", "http_port=8080"}, nil)
	if err != nil {
		t.Fatalf("ParseOverrides: %v", err)
	}
	if vars["domain"] != "example.org" || vars["http_port"] != "8080" {
		t.Errorf("vars = %v", vars)
	}

	cases := []struct {
		name  string
		pairs []string
	}{
		{"missing equals", []string{"domain"}},
		{"unknown key", []string{"color=red"}},
		{"duplicate key", []string{"domain=a", "domain=b"}},
	}
	for _, tc := range cases {
		if _, err := ParseOverrides(tc.pairs, nil); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
