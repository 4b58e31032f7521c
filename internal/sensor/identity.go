package sensor

import "strings"

type identity struct {
	id     string
	device string
	label  string
	unit   string
	signal Signal
}

// identityMap maps sensor ids to their device name, display label and unit.
var identityMap = []identity{
	{Temperature, "TempSensor-1", "Temperature", "°C", Continuous},
	{Motion, "MotionSensor-1", "Motion", "", Binary},
}

// Known returns every supported sensor id in display order.
func Known() []string {
	ids := make([]string, 0, len(identityMap))
	for _, entry := range identityMap {
		ids = append(ids, entry.id)
	}
	return ids
}

// IsKnown reports whether id names a supported sensor kind.
func IsKnown(id string) bool {
	_, ok := lookup(id)
	return ok
}

// DeviceName returns the registry name for a sensor id, e.g. "TempSensor-1".
func DeviceName(id string) string {
	if entry, ok := lookup(id); ok {
		return entry.device
	}
	return "Sensor"
}

// FriendlyName returns a human-readable label for a sensor id.
func FriendlyName(id string) string {
	if entry, ok := lookup(id); ok {
		return entry.label
	}
	return "Sensor"
}

func lookup(id string) (identity, bool) {
	lower := strings.ToLower(strings.TrimSpace(id))
	for _, entry := range identityMap {
		if entry.id == lower {
			return entry, true
		}
	}
	return identity{}, false
}

// Describe returns the display part of a sensor's spec, without period or
// generator. It is used to render recorded samples.
func Describe(id string) (Spec, bool) {
	entry, ok := lookup(id)
	if !ok {
		return Spec{}, false
	}
	return Spec{ID: entry.id, Device: entry.device, Label: entry.label, Unit: entry.unit, Signal: entry.signal}, true
}
