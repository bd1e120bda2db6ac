package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/deeppavlov/convai-router-bot/catalog"
	"github.com/deeppavlov/convai-router-bot/internal/fsstore"
)

func stateDir() (string, error) {
	dir := strings.TrimSpace(viper.GetString("state_dir"))
	if dir == "" {
		return "", fmt.Errorf("missing state_dir (set via --state-dir or %s_STATE_DIR)", envPrefix)
	}
	if err := fsstore.EnsureDir(dir); err != nil {
		return "", err
	}
	return filepath.Clean(dir), nil
}

func profilesPath(dir string) string  { return filepath.Join(dir, "profiles.json") }
func tagsPath(dir string) string      { return filepath.Join(dir, "tags.json") }
func instancesPath(dir string) string { return filepath.Join(dir, "instances.json") }

// registeredInstance is one row of the administrative instance list; serve
// registers them all at startup.
type registeredInstance struct {
	ProfileID string `json:"profile_id"`
	Token     string `json:"token"`
}

type instancesFile struct {
	Instances []registeredInstance `json:"instances"`
}

func loadInstances(dir string) ([]registeredInstance, error) {
	var file instancesFile
	if _, err := fsstore.ReadJSON(instancesPath(dir), &file); err != nil {
		return nil, err
	}
	return file.Instances, nil
}

func saveInstances(dir string, instances []registeredInstance) error {
	return fsstore.WriteJSONAtomic(instancesPath(dir), instancesFile{Instances: instances})
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	var profiles []catalog.Profile
	ok, err := fsstore.ReadJSON(profilesPath(dir), &profiles)
	if err != nil {
		return nil, err
	}
	cat := catalog.New()
	if !ok || len(profiles) == 0 {
		return cat, nil
	}
	if err := cat.Replace(profiles); err != nil {
		return nil, fmt.Errorf("stored profile snapshot rejected: %w", err)
	}
	return cat, nil
}
