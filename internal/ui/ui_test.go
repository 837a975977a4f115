package ui

import (
	"os"
	"path/filepath"
	"testing"
)

func TestShouldUseColorFor(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for _, tc := range []struct {
		name  string
		env   map[string]string
		file  *os.File
		color bool
	}{
		{"NoColorWins", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, f, false},
		{"ForceOnFile", map[string]string{"CLICOLOR_FORCE": "1"}, f, true},
		{"ClicolorOff", map[string]string{"CLICOLOR": "0"}, f, false},
		{"PlainFileIsNotATerminal", nil, f, false},
		{"NilFile", nil, nil, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{"NO_COLOR", "CLICOLOR_FORCE", "CLICOLOR"} {
				t.Setenv(k, tc.env[k])
			}
			if got := ShouldUseColorFor(tc.file); got != tc.color {
				t.Errorf("ShouldUseColorFor = %v, want %v", got, tc.color)
			}
		})
	}
}

func TestTerminalWidthFallback(t *testing.T) {
	if got := TerminalWidth(nil, 80); got != 80 {
		t.Errorf("nil file width = %d", got)
	}
}

func TestRender(t *testing.T) {
	saved := noColor
	t.Cleanup(func() { noColor = saved })

	noColor = false
	if got := RenderWarn("x"); got != "\x1b[38;5;214mx\x1b[0m" {
		t.Errorf("RenderWarn = %q", got)
	}
	if got := RenderBold("x"); got != "\x1b[1mx\x1b[0m" {
		t.Errorf("RenderBold = %q", got)
	}
	if got := RenderError(""); got != "" {
		t.Errorf("empty string painted: %q", got)
	}

	ForceNoColor()
	for _, fn := range []func(string) string{RenderAccent, RenderMuted, RenderCommand, RenderWarn, RenderError, RenderSuccess, RenderBold} {
		if got := fn("plain"); got != "plain" {
			t.Errorf("colored with NoColor: %q", got)
		}
	}
}
