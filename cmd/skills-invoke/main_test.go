package main

import (
	"bytes"
	"strings"
	"testing"
)

const event = `{
	"id": "req-1",
	"skill": {"id": "75"},
	"source": {"id": "123", "name": "photo.jpg", "size": 1024},
	"token": {"read": {"access_token": "r"}, "write": {"access_token": "w"}}
}`

func TestRun_RequiresSkill(t *testing.T) {
	var out bytes.Buffer
	if code := run(nil, strings.NewReader(event), &out); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRun_MissingEventFile(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{"-skill", "hello", "-event", "/does/not/exist.json"}, strings.NewReader(""), &out)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRun_UnknownSkill(t *testing.T) {
	t.Setenv("SKILLS_LOG_LEVEL", "error")

	var out bytes.Buffer
	code := run([]string{"-skill", "nope", "-dry-run"}, strings.NewReader(event), &out)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
}
