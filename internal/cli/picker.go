package cli

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
)

// errNoArchitecture is returned when no architecture was given and none
// can be asked for.
var errNoArchitecture = errors.New("architecture required: pass it as an argument or run in a terminal")

type picker interface {
	IsInteractive() bool
	Pick(archs []string) (string, error)
}

// terminalPicker asks for an architecture with an interactive select.
type terminalPicker struct{}

func newTerminalPicker() *terminalPicker {
	return &terminalPicker{}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *terminalPicker) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func (p *terminalPicker) Pick(archs []string) (string, error) {
	var selected string
	err := huh.NewSelect[string]().
		Title("Architecture").
		Description("Type / to filter").
		Options(huh.NewOptions(archs...)...).
		Height(12).
		Value(&selected).
		Run()
	if err != nil {
		return "", err
	}
	return selected, nil
}

func (a *app) pickArchitecture(args []string, archs []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if a.picker == nil || !a.picker.IsInteractive() {
		return "", errNoArchitecture
	}
	return a.picker.Pick(archs)
}
