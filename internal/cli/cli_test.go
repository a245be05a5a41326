package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mgpai22/cuetrack/internal/export"
)

const karaokeVTT = "WEBVTT\n" +
	"\n" +
	"REGION\n" +
	"id:bottom width:50%\n" +
	"\n" +
	"00:00:01.000 --> 00:00:03.000 region:bottom\n" +
	"Sing <00:00:02.000>along\n" +
	"\n" +
	"00:00:04.000 --> 00:00:05.000\n" +
	"Done\n"

const overlapTTML = `<tt xmlns="http://www.w3.org/ns/ttml"><body><div>
<p begin="0s" end="1s">First</p>
<p begin="0.5s" end="1.5s">Second</p>
</div></body></tt>`

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runs the root command and returns what it wrote to stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := rootCmd.Execute()
	return stdout.String(), err
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	return path
}

func TestParseCommandJSON(t *testing.T) {
	input := writeInput(t, "captions.ttml", overlapTTML)

	out, err := run(t, "parse", input, "--chunk-size", "7")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var records []export.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(records))
	}
	if records[1].Text != "First\nSecond" || records[1].StartMs != 500 {
		t.Errorf("unexpected middle cue: %+v", records[1])
	}
}

func TestParseCommandWritesFile(t *testing.T) {
	input := writeInput(t, "movie.vtt", karaokeVTT)
	output := filepath.Join(t.TempDir(), "out", "movie.srt")

	if _, err := run(t, "parse", input, "-o", output); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "1\n00:00:01,000 --> 00:00:03,000\nSing along\n") {
		t.Errorf("unexpected SRT output:\n%s", data)
	}
}

func TestOutputWithoutExtension(t *testing.T) {
	input := writeInput(t, "movie.vtt", karaokeVTT)
	output := filepath.Join(t.TempDir(), "movie")

	if _, err := run(t, "parse", input, "-o", output, "--to", "vtt"); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	data, err := os.ReadFile(output + ".vtt")
	if err != nil {
		t.Fatalf("output not written with .vtt extension: %v", err)
	}
	if !strings.HasPrefix(string(data), "WEBVTT\n") {
		t.Errorf("unexpected VTT output:\n%s", data)
	}
}

func TestActiveCommand(t *testing.T) {
	input := writeInput(t, "movie.vtt", karaokeVTT)

	out, err := run(t, "active", input, "--at", "00:01.500", "--to", "json")
	if err != nil {
		t.Fatalf("active failed: %v", err)
	}

	var records []export.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 active cue, got %d", len(records))
	}
	spans := records[0].Lines[0]
	if !spans[0].Enabled || spans[1].Enabled {
		t.Errorf("expected only the first span enabled at 1500ms: %+v", spans)
	}
	if records[0].RegionID != "bottom" {
		t.Errorf("expected region bottom, got %q", records[0].RegionID)
	}
}

func TestParseStoreAndReadBack(t *testing.T) {
	input := writeInput(t, "movie.vtt", karaokeVTT)
	db := filepath.Join(t.TempDir(), "cues.db")

	if _, err := run(t, "parse", input, "--store", "--database", db); err != nil {
		t.Fatalf("parse --store failed: %v", err)
	}

	listing, err := run(t, "cues", "--database", db)
	if err != nil {
		t.Fatalf("cues failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(listing), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one track, got:\n%s", listing)
	}
	trackID := strings.Fields(lines[1])[0]

	out, err := run(t, "cues", trackID, "--database", db, "--at", "4500", "--to", "vtt")
	if err != nil {
		t.Fatalf("cues <id> failed: %v", err)
	}
	if !strings.Contains(out, "00:00:04.000 --> 00:00:05.000\nDone") {
		t.Errorf("unexpected stored cues:\n%s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	input := writeInput(t, "notes.txt", "just some text")

	tests := []struct {
		name string
		args []string
	}{
		{"undetectable format", []string{"parse", input}},
		{"unknown input format", []string{"parse", input, "--format", "srt"}},
		{"unknown output format", []string{"parse", input, "--format", "vtt", "--to", "ass"}},
		{"bad media time", []string{"active", input, "--format", "vtt", "--at", "soon"}},
		{"missing file", []string{"parse", filepath.Join(t.TempDir(), "absent.vtt")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestParseMediaTime(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1500", 1500, false},
		{" 0 ", 0, false},
		{"00:01.500", 1500, false},
		{"01:00:00.000", 3_600_000, false},
		{"-5", 0, true},
		{"1.5s", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseMediaTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMediaTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseMediaTime(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
