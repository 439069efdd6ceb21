package domain

import "fmt"

// TargetParameter identifies one externally addressable location to be set: a
// structured path within a location's sub-store.
type TargetParameter struct {
	Location Location `json:"location"`
	Path     string   `json:"path"`
}

// NewTarget constructs a target parameter.
func NewTarget(loc Location, path string) TargetParameter {
	return TargetParameter{Location: loc, Path: path}
}

// String renders the target as location/path for error messages and logs.
func (t TargetParameter) String() string {
	return fmt.Sprintf("%s/%s", t.Location, t.Path)
}
