package changeset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sprite-ai/prlens/internal/model"
)

// validate checks inbound change-set documents.
var validate = validator.New()

// LoadFile reads a change-set document. Files ending in .yaml or .yml are
// YAML, anything else is JSON.
func LoadFile(path string, maxPatchBytes int) (*model.ChangeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(bytes.NewReader(data), maxPatchBytes)
	default:
		return DecodeJSON(bytes.NewReader(data), maxPatchBytes)
	}
}

// DecodeJSON reads and validates a JSON change-set document.
func DecodeJSON(r io.Reader, maxPatchBytes int) (*model.ChangeSet, error) {
	var cs model.ChangeSet
	if err := json.NewDecoder(r).Decode(&cs); err != nil {
		return nil, fmt.Errorf("decoding change set: %w", err)
	}
	return Prepare(&cs, maxPatchBytes)
}

// DecodeYAML reads and validates a YAML change-set document.
func DecodeYAML(r io.Reader, maxPatchBytes int) (*model.ChangeSet, error) {
	var cs model.ChangeSet
	if err := yaml.NewDecoder(r).Decode(&cs); err != nil {
		return nil, fmt.Errorf("decoding change set: %w", err)
	}
	return Prepare(&cs, maxPatchBytes)
}

// Validate checks the field constraints of a change set.
func Validate(cs *model.ChangeSet) error {
	if err := validate.Struct(cs); err != nil {
		return fmt.Errorf("invalid change set: %w", err)
	}
	return nil
}

// Prepare fills the file list from the raw diff when the change set has
// none, caps patches and validates.
func Prepare(cs *model.ChangeSet, maxPatchBytes int) (*model.ChangeSet, error) {
	if len(cs.Files) == 0 && cs.RawDiff != "" {
		cs.Files = FromDiff(cs.RawDiff, Meta{}, maxPatchBytes).Files
	}
	for i := range cs.Files {
		f := &cs.Files[i]
		f.Patch = Truncate(f.Patch, maxPatchBytes)
		if f.Changes == 0 {
			f.Changes = f.Additions + f.Deletions
		}
	}
	if err := Validate(cs); err != nil {
		return nil, err
	}
	return cs, nil
}
