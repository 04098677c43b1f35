package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ropsim/pkg/cli"
	"mercator-hq/ropsim/pkg/history"
	"mercator-hq/ropsim/pkg/notification"
)

// newTestCommand returns a command whose output is captured.
func newTestCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func withConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := map[string]bool{"run": false, "version": false, "validate": false, "rewrite": false, "notifications": false, "cycles": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRewrite(t *testing.T) {
	const tpl = "/sftp/ericsson/pmic1/CELLTRACE/NR01gNodeBRadio0001/" +
		"A20220412.1600+0100-1615+0100_NR01gNodeBRadio0001_celltracefile_CUCP0_1_1.gpb.gz"

	orig := rewriteFlags
	t.Cleanup(func() { rewriteFlags = orig })
	rewriteFlags.nodeIndex = -1
	rewriteFlags.at = "2022-01-01T00:16:00Z"
	rewriteFlags.timezone = "UTC"

	cmd, out := newTestCommand(t)
	if err := rewritePath(cmd, []string{tpl}); err != nil {
		t.Fatalf("rewritePath() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := "/sftp/ericsson/pmic1/CELLTRACE/NR01gNodeBRadio0001/" +
		"A20220101.0000+0000-0015+0000_NR01gNodeBRadio0001_celltracefile_CUCP0_1_1.gpb.gz"
	if lines[0] != want {
		t.Errorf("rewritten path\n got  %q\n want %q", lines[0], want)
	}
	if len(lines) != 2 || lines[1] != "category: EVENT_5G" {
		t.Errorf("category line = %q", lines[1:])
	}
}

func TestRewrite_Errors(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		at    string
		zone  string
		index int
	}{
		{name: "bad time", path: "XML/N/A1.xml", at: "yesterday", zone: "UTC", index: -1},
		{name: "bad zone", path: "XML/N/A1.xml", zone: "Nowhere/Land", index: -1},
		{name: "not a rop file", path: "XML/N/readme.txt", zone: "UTC", index: 3},
	}

	orig := rewriteFlags
	t.Cleanup(func() { rewriteFlags = orig })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rewriteFlags.at, rewriteFlags.timezone, rewriteFlags.nodeIndex = tt.at, tt.zone, tt.index
			cmd, _ := newTestCommand(t)
			if err := rewritePath(cmd, []string{tt.path}); err == nil {
				t.Error("rewritePath() should fail")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	withConfigFile(t, `
remote:
  backend: memory
nodes:
  pm_counter: 10
  event_5g: 2
rop:
  period_minutes: 15
  retention_minutes: 60
`)
	cmd, out := newTestCommand(t)
	if err := validateConfig(cmd, nil); err != nil {
		t.Fatalf("validateConfig() error = %v", err)
	}
	for _, want := range []string{"nodes:     12", "schedule:  */15 * * * *", "retention: 4 snapshots"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestValidate_InvalidConfigExitCode(t *testing.T) {
	withConfigFile(t, `
remote:
  backend: carrier-pigeon
`)
	cmd, _ := newTestCommand(t)
	err := validateConfig(cmd, nil)
	if err == nil {
		t.Fatal("validateConfig() should fail")
	}
	if code := cli.ExitCode(err); code != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitConfig)
	}
}

func TestNotifications(t *testing.T) {
	db := filepath.Join(t.TempDir(), "notifications.db")
	sink, err := notification.NewSQLiteSink(notification.SQLiteConfig{Path: db})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, n := range []notification.Notice{
		{NodeName: "NodeA0001", DataType: "PM_STATISTICAL", NodeType: "RadioNode", FileLocation: "/x/A1.xml"},
		{NodeName: "NodeA0002", DataType: "PM_CELLTRACE", NodeType: "RadioNode", FileLocation: "/x/A2.bin"},
	} {
		if _, err := sink.Append(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	sink.Close()

	orig := notificationsFlags
	t.Cleanup(func() { notificationsFlags = orig })
	notificationsFlags.db = db
	notificationsFlags.filter = "dataType==PM_CELL*;"
	notificationsFlags.limit = 10
	notificationsFlags.output = "json"

	cmd, out := newTestCommand(t)
	if err := queryNotifications(cmd, nil); err != nil {
		t.Fatalf("queryNotifications() error = %v", err)
	}
	var got []notification.Record
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(got) != 1 || got[0].FileLocation != "/x/A2.bin" {
		t.Errorf("records = %+v, want only the cell trace file", got)
	}
}

func TestNotifications_MemoryBackendRejected(t *testing.T) {
	withConfigFile(t, "remote:\n  backend: memory\n")
	orig := notificationsFlags
	t.Cleanup(func() { notificationsFlags = orig })
	notificationsFlags = struct {
		db     string
		filter string
		limit  int
		output string
	}{output: "text"}

	cmd, _ := newTestCommand(t)
	err := queryNotifications(cmd, nil)
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("queryNotifications() error = %v, want a config error", err)
	}
}

func TestCycles(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(history.Config{Path: db})
	if err != nil {
		t.Fatal(err)
	}
	started := time.Date(2022, 1, 1, 0, 16, 0, 0, time.UTC)
	if _, err := store.Record(context.Background(), history.Cycle{
		TriggerID: "t1", Source: "startup", Outcome: "bootstrapped",
		Window: "20220101.0000+0000-0015+0000", Published: 12, Live: 12,
		StartedAt: started, Duration: 1500 * time.Millisecond,
	}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	orig := cyclesFlags
	t.Cleanup(func() { cyclesFlags = orig })
	cyclesFlags.db = db
	cyclesFlags.limit = 5
	cyclesFlags.output = "csv"

	cmd, out := newTestCommand(t)
	if err := listCycles(cmd, nil); err != nil {
		t.Fatalf("listCycles() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header and one row:\n%s", len(lines), out.String())
	}
	want := "1,2022-01-01T00:16:00Z,startup,bootstrapped,,20220101.0000+0000-0015+0000,12,0,0,12,1.5s"
	if lines[1] != want {
		t.Errorf("row\n got  %q\n want %q", lines[1], want)
	}
}

func TestCycles_BadOutput(t *testing.T) {
	orig := cyclesFlags
	t.Cleanup(func() { cyclesFlags = orig })
	cyclesFlags.output = "yaml"

	cmd, _ := newTestCommand(t)
	if err := listCycles(cmd, nil); err == nil {
		t.Error("listCycles() should reject unknown output formats")
	}
}
