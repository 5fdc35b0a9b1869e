package telemetry

import (
	"encoding/json"
	"fmt"
)

// Flag is a single warning raised on a telemetry step
type Flag uint8

const (
	FlagBreach Flag = 1 << iota
	FlagOverspeed
	FlagStall
)

// flagOrder is the output order of flags; it carries no priority
var flagOrder = []Flag{FlagBreach, FlagOverspeed, FlagStall}

func (f Flag) String() string {
	switch f {
	case FlagBreach:
		return "BREACH"
	case FlagOverspeed:
		return "OVERSPEED"
	case FlagStall:
		return "STALL"
	default:
		return fmt.Sprintf("FLAG(%d)", uint8(f))
	}
}

// ParseFlag parses a flag name
func ParseFlag(s string) (Flag, error) {
	for _, f := range flagOrder {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown flag: %q", s)
}

// Flags is the set of warnings active on a step
type Flags uint8

// Has reports whether f is set
func (fs Flags) Has(f Flag) bool {
	return fs&Flags(f) != 0
}

// With returns fs with f set
func (fs Flags) With(f Flag) Flags {
	return fs | Flags(f)
}

// Empty reports whether no flag is set
func (fs Flags) Empty() bool {
	return fs == 0
}

// List returns the set flags in output order
func (fs Flags) List() []Flag {
	out := make([]Flag, 0, len(flagOrder))
	for _, f := range flagOrder {
		if fs.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Strings returns the set flag names in output order
func (fs Flags) Strings() []string {
	list := fs.List()
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = f.String()
	}
	return out
}

// MarshalJSON encodes the set as an ordered list of names, [] when empty
func (fs Flags) MarshalJSON() ([]byte, error) {
	return json.Marshal(fs.Strings())
}

// UnmarshalJSON decodes a list of flag names; null decodes to the empty set
func (fs *Flags) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("flags must be a list of names: %w", err)
	}
	var set Flags
	for _, name := range names {
		f, err := ParseFlag(name)
		if err != nil {
			return err
		}
		set = set.With(f)
	}
	*fs = set
	return nil
}
