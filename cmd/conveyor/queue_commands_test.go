package main

import (
	"strings"
	"testing"

	"conveyor/internal/testsupport"
)

func TestQueueStatusReportsSizes(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCaptionsQueue(t, env, "vid-1", "vid-2")

	out, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "captions")
	requireContains(t, out, "resting")
	if !strings.Contains(out, "2") {
		t.Fatalf("expected captions size 2 in output:\n%s", out)
	}
}

func TestQueueListShowsRecords(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCaptionsQueue(t, env, "vid-1")

	out, err := runCLI(t, []string{"queue", "list", "captions"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "vid-1")
	requireContains(t, out, "Title vid-1")

	out, err = runCLI(t, []string{"queue", "list", "info"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list info: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueListRejectsUnknownQueue(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, []string{"queue", "list", "mystery"}, env.configPath); err == nil {
		t.Fatal("expected unknown queue error")
	}
}

func TestQueueShowPrintsRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCaptionsQueue(t, env, "vid-1")

	out, err := runCLI(t, []string{"queue", "show", "captions", "vid-1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, `"id": "vid-1"`)
	requireContains(t, out, `"title": "Title vid-1"`)

	if _, err := runCLI(t, []string{"queue", "show", "captions", "missing"}, env.configPath); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestQueueRemoveDeletesRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCaptionsQueue(t, env, "vid-1")

	out, err := runCLI(t, []string{"queue", "remove", "captions", "vid-1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Removed vid-1")

	store := testsupport.OpenQueue(t, env.cfg.Queues.CaptionsDir)
	if size, _ := store.Size(); size != 0 {
		t.Fatalf("queue size = %d after remove", size)
	}

	out, err = runCLI(t, []string{"queue", "remove", "captions", "vid-1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove (absent): %v", err)
	}
	requireContains(t, out, "not found")
}

func TestQueueClearRequiresConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCaptionsQueue(t, env, "vid-1", "vid-2")

	if _, err := runCLI(t, []string{"queue", "clear", "captions"}, env.configPath); err == nil {
		t.Fatal("expected confirmation error")
	}

	out, err := runCLI(t, []string{"queue", "clear", "captions", "--yes"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 2 records")
}
