package log

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"firestige.xyz/otusflow/internal/config"
)

func TestInitJSON(t *testing.T) {
	err := Init(config.LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestInitText(t *testing.T) {
	err := Init(config.LogConfig{Level: "info", Format: "text"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestInitRejectsBadFormat(t *testing.T) {
	if err := Init(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestInitRejectsBadLevel(t *testing.T) {
	if err := Init(config.LogConfig{Level: "verbose", Format: "json"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestInitWithFileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := config.LogConfig{
		Level:  "info",
		Format: "json",
		Outputs: config.LogOutputsConfig{
			File: config.FileOutputConfig{
				Enabled: true,
				Path:    filepath.Join(dir, "otusflow.log"),
			},
		},
	}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestLegacyHandlerFire(t *testing.T) {
	if err := Init(config.LogConfig{Level: "debug", Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	l := logrus.New()
	l.AddHook(&LegacyHandler{})
	l.WithField("node", "src").Info("legacy entry")
}
