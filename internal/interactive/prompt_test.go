package interactive

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrompterResponses(t *testing.T) {
	tests := []struct {
		input string
		want  Response
	}{
		{"y\n", ResponseYes},
		{"YES\n", ResponseYes},
		{"n\n", ResponseNo},
		{"\n", ResponseNo},
		{"q\n", ResponseQuit},
		{"", ResponseQuit},
		{"maybe\n", ResponseNo},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			output := &bytes.Buffer{}
			p := NewPrompterWithIO(strings.NewReader(tt.input), output)

			if resp := p.prompt("Test prompt?"); resp != tt.want {
				t.Errorf("prompt() = %v, want %v", resp, tt.want)
			}
			if !strings.Contains(output.String(), "Test prompt? [y/n/q]") {
				t.Errorf("prompt text missing: %q", output.String())
			}
		})
	}
}

func TestPrompterInvalidResponse(t *testing.T) {
	output := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("maybe\n"), output)

	p.prompt("Test prompt?")

	if !strings.Contains(output.String(), "Invalid response") {
		t.Errorf("expected invalid response message, got %q", output.String())
	}
}

func TestConfirmDownload(t *testing.T) {
	output := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("y\n"), output)

	if !p.ConfirmDownload("v1.0.0", "v1.1.0") {
		t.Error("expected confirmation")
	}
	if !strings.Contains(output.String(), "Download v1.1.0 (currently running v1.0.0)?") {
		t.Errorf("unexpected prompt: %q", output.String())
	}
}

func TestConfirmRestart_Declined(t *testing.T) {
	output := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("n\n"), output)

	if p.ConfirmRestart("v1.1.0") {
		t.Error("expected decline")
	}
	if !strings.Contains(output.String(), "installed when glint exits") {
		t.Errorf("missing deferred install notice: %q", output.String())
	}
}

func TestPrompterMultipleQuestions(t *testing.T) {
	p := NewPrompterWithIO(strings.NewReader("y\ny\n"), &bytes.Buffer{})

	if !p.ConfirmDownload("v1", "v2") {
		t.Error("first answer should be yes")
	}
	if !p.ConfirmRestart("v2") {
		t.Error("second answer should be yes")
	}
}

func TestConfirmOverwrite(t *testing.T) {
	output := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("yes\n"), output)

	if !p.ConfirmOverwrite("/tmp/config.yaml") {
		t.Error("expected confirmation")
	}
	if !strings.Contains(output.String(), "/tmp/config.yaml already exists. Overwrite? [y/n/q]") {
		t.Errorf("unexpected prompt: %q", output.String())
	}
}

func TestChoose(t *testing.T) {
	choices := []Choice{
		{Label: "dev", Detail: "dev feed"},
		{Label: "generic", Detail: "self-hosted"},
	}

	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "1\n", want: 0},
		{input: " 2 \n", want: 1},
		{input: "3\n", wantErr: true},
		{input: "0\n", wantErr: true},
		{input: "generic\n", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			output := &bytes.Buffer{}
			got, err := NewPrompterWithIO(strings.NewReader(tt.input), output).Choose("Pick one:", choices)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Choose() = %d, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Choose() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Choose() = %d, want %d", got, tt.want)
			}
			if !strings.Contains(output.String(), "2. generic    - self-hosted") {
				t.Errorf("menu not printed: %q", output.String())
			}
		})
	}
}

func TestChoose_Empty(t *testing.T) {
	if _, err := NewPrompterWithIO(strings.NewReader("1\n"), &bytes.Buffer{}).Choose("Pick:", nil); err == nil {
		t.Error("expected error for empty menu")
	}
}
