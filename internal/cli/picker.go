package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/luki/iotsim/internal/errors"
	"github.com/luki/iotsim/internal/sensor"
)

// pickSensors asks which sensors to enable, preselecting current. An empty
// selection is rejected by the form itself.
func pickSensors(current []string) ([]string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.Config("--pick needs an interactive terminal",
			"Use --sensors temperature,motion instead")
	}

	chosen := slices.Clone(current)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Which sensors should the dashboard simulate?").
				Options(sensorOptions(current)...).
				Value(&chosen).
				Validate(validateSelection),
		),
	)

	if err := form.Run(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Sensor selection cancelled", "")
	}
	return chosen, nil
}

func sensorOptions(current []string) []huh.Option[string] {
	var options []huh.Option[string]
	for _, id := range sensor.Known() {
		label := fmt.Sprintf("%s (%s)", sensor.FriendlyName(id), sensor.DeviceName(id))
		options = append(options, huh.NewOption(label, id).Selected(slices.Contains(current, id)))
	}
	return options
}

func validateSelection(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("select at least one sensor")
	}
	return nil
}
