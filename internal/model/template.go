package model

// RoleTemplate is a named, ordered list of role labels an event offers.
type RoleTemplate struct {
	Name  string   `json:"name" yaml:"name" toml:"name"`
	Roles []string `json:"roles" yaml:"roles" toml:"roles"`
}
