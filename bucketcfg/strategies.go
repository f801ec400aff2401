package bucketcfg

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// descriptorSection mirrors one top-level section of the descriptor.
type descriptorSection struct {
	Buckets    map[string]descriptorBucket `yaml:"buckets"`
	QuiltStyle *registryBlock              `yaml:"quilt-style"`
}

type descriptorBucket struct {
	Bucket string `yaml:"Bucket"`
	Prefix string `yaml:"Prefix"`
}

type registryBlock struct {
	Namespace string `yaml:"namespace"`
	Registry  string `yaml:"registry"`
}

// yamlStrategy decodes the descriptor with gopkg.in/yaml.v3.
type yamlStrategy struct{}

func (yamlStrategy) name() string { return "yaml" }

func (yamlStrategy) extract(path, section, key string) (string, string, error) {
	doc, err := loadYAMLDescriptor(path)
	if err != nil {
		return "", "", err
	}
	sec, ok := doc[section]
	if !ok {
		return "", "", fmt.Errorf("section %q not present", section)
	}
	bucket, ok := sec.Buckets[key]
	if !ok {
		return "", "", fmt.Errorf("bucket key %q not present in section %q", key, section)
	}
	return bucket.Bucket, bucket.Prefix, nil
}

func loadYAMLDescriptor(path string) (map[string]descriptorSection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]descriptorSection
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func yamlRegistry(path, section string) (Registry, error) {
	doc, err := loadYAMLDescriptor(path)
	if err != nil {
		return Registry{}, err
	}
	sec, ok := doc[section]
	if !ok || sec.QuiltStyle == nil {
		return Registry{}, nil
	}
	return Registry{Namespace: sec.QuiltStyle.Namespace, Registry: sec.QuiltStyle.Registry}, nil
}

// viperStrategy reads the descriptor through Viper's YAML reader. Viper
// carries its own YAML implementation, so this path survives when the
// primary decoder misparses a tenant-edited file.
type viperStrategy struct{}

func (viperStrategy) name() string { return "viper" }

func (viperStrategy) extract(path, section, key string) (string, string, error) {
	v, err := loadViperDescriptor(path)
	if err != nil {
		return "", "", err
	}
	// Viper keys are case-insensitive, which also absorbs descriptors that
	// write "bucket:" instead of "Bucket:".
	base := fmt.Sprintf("%s.buckets.%s", section, key)
	return v.GetString(base + ".bucket"), v.GetString(base + ".prefix"), nil
}

func loadViperDescriptor(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

func viperRegistry(path, section string) (Registry, error) {
	v, err := loadViperDescriptor(path)
	if err != nil {
		return Registry{}, err
	}
	base := section + ".quilt-style"
	return Registry{
		Namespace: v.GetString(base + ".namespace"),
		Registry:  v.GetString(base + ".registry"),
	}, nil
}
