package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	environmentFilePathRequiredMessageConstant     = "environment file path must be provided"
	environmentFileLoadErrorTemplateConstant       = "failed to load environment file: %w"
	environmentFileParseErrorTemplateConstant      = "failed to parse environment file: %w"
	environmentFileEmptyKeyMessageConstant         = "environment file defines an empty variable name"
	environmentAssignmentInvalidTemplateConstant   = "invalid environment assignment %q"
	environmentAssignmentKeyValueSeparatorConstant = "="
)

// EnvironmentFileLoader reads flat KEY: value assignments from a YAML file.
type EnvironmentFileLoader struct{}

// NewEnvironmentFileLoader constructs an EnvironmentFileLoader instance.
func NewEnvironmentFileLoader() *EnvironmentFileLoader {
	return &EnvironmentFileLoader{}
}

// Load reads the file at the provided path and returns its variable assignments.
// Scalar values are rendered with their YAML textual representation; a key
// without a value yields an empty string.
func (loader *EnvironmentFileLoader) Load(filePath string) (map[string]string, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return nil, errors.New(environmentFilePathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return nil, fmt.Errorf(environmentFileLoadErrorTemplateConstant, readError)
	}

	rawAssignments := map[string]any{}
	if unmarshalError := yaml.Unmarshal(contentBytes, &rawAssignments); unmarshalError != nil {
		return nil, fmt.Errorf(environmentFileParseErrorTemplateConstant, unmarshalError)
	}

	assignments := make(map[string]string, len(rawAssignments))
	for assignmentKey, assignmentValue := range rawAssignments {
		trimmedKey := strings.TrimSpace(assignmentKey)
		if len(trimmedKey) == 0 {
			return nil, errors.New(environmentFileEmptyKeyMessageConstant)
		}
		assignments[trimmedKey] = renderEnvironmentValue(assignmentValue)
	}

	return assignments, nil
}

// ParseEnvironmentAssignments converts KEY=VALUE strings into a variable map.
// Later assignments override earlier ones for the same key.
func ParseEnvironmentAssignments(rawAssignments []string) (map[string]string, error) {
	if len(rawAssignments) == 0 {
		return nil, nil
	}

	assignments := make(map[string]string, len(rawAssignments))
	for _, rawAssignment := range rawAssignments {
		separatorIndex := strings.Index(rawAssignment, environmentAssignmentKeyValueSeparatorConstant)
		if separatorIndex <= 0 {
			return nil, fmt.Errorf(environmentAssignmentInvalidTemplateConstant, rawAssignment)
		}

		assignmentKey := strings.TrimSpace(rawAssignment[:separatorIndex])
		if len(assignmentKey) == 0 {
			return nil, fmt.Errorf(environmentAssignmentInvalidTemplateConstant, rawAssignment)
		}

		assignments[assignmentKey] = rawAssignment[separatorIndex+1:]
	}

	return assignments, nil
}

func renderEnvironmentValue(assignmentValue any) string {
	if assignmentValue == nil {
		return ""
	}
	if stringValue, isString := assignmentValue.(string); isString {
		return stringValue
	}
	return fmt.Sprintf("%v", assignmentValue)
}
