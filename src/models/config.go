package models

// MConfig Structure
type MConfig struct {
	Name              string              `yaml:"name"`
	Host              string              `yaml:"host"`
	Port              int                 `yaml:"port"`
	LogLevel          string              `yaml:"log_level"`
	AuthSharedSecret  string              `yaml:"auth_shared_secret"`
	StateFreshSeconds int64               `yaml:"state_fresh_seconds"`
	PortFreshSeconds  int64               `yaml:"port_fresh_seconds"`
	AttachmentsDir    string              `yaml:"attachments_dir"`
	Storage           MStorageConfig      `yaml:"storage"`
	Lists             map[string][]string `yaml:"lists"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	SchemaName         string `yaml:"schema_name"`
}
