// Package config loads migration settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/Napageneral/trac2gollum/internal/gitrepo"
	"github.com/Napageneral/trac2gollum/internal/identity"
	"github.com/Napageneral/trac2gollum/internal/logging"
	"github.com/Napageneral/trac2gollum/internal/trac"
)

// InvalidCode tags configuration errors.
const InvalidCode = "CONFIG_INVALID"

var offsetPattern = regexp.MustCompile(`^[+-]\d{4}$`)

// Config holds every tunable of a migration run.
type Config struct {
	Git             string         `yaml:"git"`
	Driver          string         `yaml:"driver"`
	ReservedAddress string         `yaml:"reserved_address"`
	StartPage       string         `yaml:"start_page"`
	HomePage        string         `yaml:"home_page"`
	Extension       string         `yaml:"extension"`
	TimeOffset      string         `yaml:"time_offset"`
	Compact         bool           `yaml:"compact"`
	Log             logging.Config `yaml:"log"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Git:             "git",
		Driver:          trac.DriverPure,
		ReservedAddress: trac.DefaultReservedAddress,
		StartPage:       identity.StartPage,
		HomePage:        identity.HomePage,
		Extension:       gitrepo.DefaultExtension,
		TimeOffset:      identity.DefaultOffset,
		Compact:         true,
		Log:             logging.Config{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, Invalid(fmt.Errorf("read config %s: %w", path, err))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, Invalid(fmt.Errorf("parse config %s: %w", path, err))
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting in one error.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Git) == "" {
		problems = append(problems, "git binary must not be empty")
	}
	if !slices.Contains(trac.Drivers, c.Driver) {
		problems = append(problems, fmt.Sprintf("driver %q is not one of %s", c.Driver, strings.Join(trac.Drivers, ", ")))
	}
	if !offsetPattern.MatchString(c.TimeOffset) {
		problems = append(problems, fmt.Sprintf("time_offset %q must look like +0000", c.TimeOffset))
	}
	if c.Extension == "" || !strings.HasPrefix(c.Extension, ".") {
		problems = append(problems, fmt.Sprintf("extension %q must start with a dot", c.Extension))
	}
	if c.StartPage == "" || c.HomePage == "" {
		problems = append(problems, "start_page and home_page must not be empty")
	}
	if strings.ContainsAny(c.HomePage, `/\ `) {
		problems = append(problems, fmt.Sprintf("home_page %q must be a plain file name", c.HomePage))
	}
	if len(problems) == 0 {
		return nil
	}
	return Invalid(errors.New(strings.Join(problems, "; ")))
}

// Pages returns the landing page rename.
func (c Config) Pages() identity.Pages {
	return identity.Pages{Start: c.StartPage, Home: c.HomePage}
}

// Invalid marks err as a configuration error.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).WithTextCode(InvalidCode)
}
