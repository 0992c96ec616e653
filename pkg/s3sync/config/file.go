package config

import (
	"github.com/s3sync-go/s3sync/pkg/encoding"
)

// FileDefaults is the subset of the §6 flag surface that can be supplied
// ahead of time via a shared YAML defaults file, the way the teacher's
// global configuration file supplies session defaults. A value set on the
// command line always overrides the corresponding entry here; FileDefaults
// only fills in flags not given on the command line, and an entry left at
// its zero value in the file is ignored.
type FileDefaults struct {
	Region             string `yaml:"region"`
	EndpointURL        string `yaml:"endpoint_url"`
	WorkerSize         int    `yaml:"worker_size"`
	MaxKeys            int    `yaml:"max_keys"`
	MultipartThreshold string `yaml:"multipart_threshold"`
	MultipartChunksize string `yaml:"multipart_chunksize"`
	InflightPartsLimit int    `yaml:"inflight_parts_limit"`
	StorageClass       string `yaml:"storage_class"`
	AWSMaxAttempts     int    `yaml:"aws_max_attempts"`
	LogLevel           string `yaml:"log_level"`
	WarnAsError        bool   `yaml:"warn_as_error"`
}

// LoadFileDefaults reads and decodes a YAML defaults file from path.
func LoadFileDefaults(path string) (*FileDefaults, error) {
	result := &FileDefaults{}
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		return nil, err
	}
	return result, nil
}
