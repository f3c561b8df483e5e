package configuration

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

// GodotenvProvider reads kernel configuration files (such as
// [DefaultFile]) in the KEY=value format understood by godotenv.
type GodotenvProvider struct{}

// Read parses the given files into a key/value map. Keys in later files
// override those of earlier ones.
func (*GodotenvProvider) Read(filenames ...string) (map[string]string, error) {
	data, err := godotenv.Read(filenames...)
	if err != nil {
		return data, fmt.Errorf("(config-godotenv) %s: %w", strings.Join(filenames, ","), err)
	}

	return data, nil
}
