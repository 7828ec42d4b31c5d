package models

import "time"

// SystemConfig is a key/value row for platform-level settings
// (commissions, currency, platform name). Values are stored as strings
// and parsed by the config handler; unset keys fall back to hard-coded
// defaults.
type SystemConfig struct {
	Key   string `gorm:"primaryKey;size:60" json:"key"`
	Value string `gorm:"type:text;not null" json:"value"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Known config keys.
const (
	ConfigClientCommission     = "clientCommission"
	ConfigFreelancerCommission = "freelancerCommission"
	ConfigCurrency             = "currency"
	ConfigPlatformName         = "platformName"
)
