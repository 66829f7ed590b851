package deed

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// LoadConfigFile reads a YAML-encoded Config from path, for operators
// who want to tune trail capacity, evaporation rate, staleness window,
// or colony sizing without recompiling. The interface-valued fields
// (Clock, IDGen, Logger, RandSource, Tracer) are never read from the
// file; they come back set to defaultConfig()'s values and can be
// overridden afterward with the usual WithXxx options.
func LoadConfigFile(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteConfigFile writes cfg's YAML-serializable tunables to path, for
// an operator capturing a running Engine's configuration as a starting
// point for a tuned deployment file.
func WriteConfigFile(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}
