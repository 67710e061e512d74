package config

import (
	"fmt"
	"os"
)

// readFile is the shared file-read helper behind LoadDataflow, kept
// separate from GlobalConfig's viper-driven Load since DataflowConfig is
// parsed directly (mirroring the teacher's ParseTaskConfigAuto, which
// never routed task configs through viper either).
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataflow config file: %w", err)
	}
	return data, nil
}
