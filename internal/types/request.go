package types

import (
	"errors"
	"regexp"
	"strings"
)

var targetVersionRe = regexp.MustCompile(`^[0-9]+\.[0-9]+(\.[0-9]+)?$`)

// IsTargetVersion reports whether v looks like a server API version such as
// 1.20 or 1.20.4.
func IsTargetVersion(v string) bool { return targetVersionRe.MatchString(v) }

// GenerationRequest is what a caller asks the system to build.
type GenerationRequest struct {
	UserID        string `json:"userId"`
	PluginName    string `json:"pluginName"`
	Requirements  string `json:"requirements"`
	TargetVersion string `json:"targetVersion,omitempty"`
	MaxIterations int    `json:"maxIterations,omitempty"`
}

// Normalize trims fields and validates the identifiers used as directory names.
func (r GenerationRequest) Normalize() (GenerationRequest, error) {
	r.UserID = strings.TrimSpace(r.UserID)
	r.PluginName = strings.TrimSpace(r.PluginName)
	r.Requirements = strings.TrimSpace(r.Requirements)
	r.TargetVersion = strings.TrimSpace(r.TargetVersion)
	if err := checkSegment("userId", r.UserID); err != nil {
		return r, err
	}
	if err := checkSegment("pluginName", r.PluginName); err != nil {
		return r, err
	}
	if r.TargetVersion != "" && !IsTargetVersion(r.TargetVersion) {
		return r, errors.New("targetVersion must look like 1.20.4")
	}
	if r.MaxIterations < 0 {
		return r, errors.New("maxIterations must not be negative")
	}
	return r, nil
}

// ProjectKey identifies a project across the session guard and persistence.
func (r GenerationRequest) ProjectKey() string {
	return r.UserID + "/" + r.PluginName
}

func checkSegment(field, v string) error {
	if v == "" {
		return errors.New(field + " is required")
	}
	if strings.Contains(v, "/") || v == "." || CheckRelPath(v) != nil {
		return errors.New(field + " must be a single path segment")
	}
	return nil
}
