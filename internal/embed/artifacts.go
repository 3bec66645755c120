package embed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ocr-provenance/workers/internal/domain"
)

// EnvModelPath overrides the model directory location.
const EnvModelPath = "EMBEDDING_MODEL_PATH"

// requiredArtifacts is the three-file model directory contract: model
// configuration, ONNX weights, and the tokenizer definition. Absence of any
// of them is fatal at load time.
var requiredArtifacts = []string{"config.json", "model.onnx", "tokenizer.json"}

// ResolveModelPath locates the embedding model directory: the environment
// override wins, then the package-relative default, then the per-user
// install location.
func ResolveModelPath() string {
	if p := os.Getenv(EnvModelPath); p != "" {
		return p
	}
	local := filepath.Join("models", domain.ModelName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return local
	}
	return filepath.Join(home, ".ocr-provenance", "models", domain.ModelName)
}

// CheckArtifacts verifies the model directory exists and holds every
// required artifact file. Both failure shapes are fatal and non-retryable,
// distinct from hardware-unavailability errors.
func CheckArtifacts(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return domain.NewModelLoadError(dir, fmt.Errorf("model directory not found"))
	}
	var missing []string
	for _, name := range requiredArtifacts {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return domain.NewModelLoadError(dir, fmt.Errorf("missing model files: %v", missing))
	}
	return nil
}
