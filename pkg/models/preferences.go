package models

// DefaultEnergy is used for hours the energy curve does not cover.
const DefaultEnergy = 0.5

// UserPreferences holds slowly-changing scheduling preferences. They are
// owned by configuration storage and read-only to the decision engines.
type UserPreferences struct {
	MorningPerson    bool            `yaml:"morning_person" json:"morning_person" mapstructure:"morning_person"`
	// MorningPersonSet records that MorningPerson was configured explicitly,
	// so inference leaves it alone even when it is false.
	MorningPersonSet bool            `yaml:"-" json:"-" mapstructure:"-"`
	MaxExtendMinutes int             `yaml:"max_extend_minutes" json:"max_extend_minutes" mapstructure:"max_extend_minutes"`
	EnergyCurve      map[int]float64 `yaml:"energy_curve,omitempty" json:"energy_curve,omitempty" mapstructure:"energy_curve"`
}

// EnergyAt returns the expected energy level for the given hour of day,
// clipped to [0,1]. Missing hours yield DefaultEnergy.
func (p UserPreferences) EnergyAt(hour int) float64 {
	v, ok := p.EnergyCurve[hour]
	if !ok {
		return DefaultEnergy
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
