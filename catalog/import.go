package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// importedProfile is the loose on-disk shape of one profile inside a linked
// group. Parsing is strict: unknown fields or a missing persona reject the
// whole snapshot, never individual profiles.
type importedProfile struct {
	Persona []string `json:"persona" yaml:"persona"`
	Tags    []string `json:"tags" yaml:"tags"`
	Topics  []string `json:"topics" yaml:"topics"`
}

// ParseSnapshot reads a full profile snapshot from r. The format is an array
// of linked groups, each an array of profiles; it is selected by the file
// extension (".json", ".yaml" or ".yml"). Each multi-member group receives a
// generated linked-group id, and group members keep their order.
func ParseSnapshot(r io.Reader, filename string) ([]Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read snapshot: %w", err)
	}

	var groups [][]importedProfile
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&groups); err != nil {
			return nil, fmt.Errorf("catalog: invalid json snapshot: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&groups); err != nil {
			return nil, fmt.Errorf("catalog: invalid yaml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("catalog: unsupported snapshot extension %q (want .json, .yaml or .yml)", ext)
	}

	var profiles []Profile
	for gi, group := range groups {
		if len(group) == 0 {
			return nil, fmt.Errorf("catalog: linked group %d is empty", gi)
		}
		groupID := ""
		if len(group) > 1 {
			groupID = uuid.NewString()
		}
		for pi, in := range group {
			if len(in.Persona) == 0 {
				return nil, fmt.Errorf("catalog: profile %d in group %d has no persona", pi, gi)
			}
			for si, sentence := range in.Persona {
				if strings.TrimSpace(sentence) == "" {
					return nil, fmt.Errorf("catalog: profile %d in group %d has empty persona sentence %d", pi, gi, si)
				}
			}
			profiles = append(profiles, Profile{
				ID:            uuid.NewString(),
				Persona:       in.Persona,
				Tags:          in.Tags,
				Topics:        in.Topics,
				LinkedGroupID: groupID,
			})
		}
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("catalog: snapshot contains no profiles")
	}
	return profiles, nil
}
