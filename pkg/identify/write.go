package identify

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Write persists every identity into folder: one {kid}_{NN}.png per
// queued image plus {kid}_ref.png for the reference. An existing folder
// of the same name is moved aside to a trash sibling first.
func (r *Registry) Write(folder string) error {
	if info, err := os.Stat(folder); err == nil && info.IsDir() {
		trash := folder + ".trash-" + uuid.NewString()[:8]
		if err := os.Rename(folder, trash); err != nil {
			return fmt.Errorf("identify: move old folder aside: %w", err)
		}
		r.logger.Info("moved existing identity folder to trash",
			"folder", folder, "trash", trash)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("identify: create folder: %w", err)
	}

	for _, kid := range r.kids {
		f := r.fifos[kid]
		for i, img := range f.Images() {
			name := filepath.Join(folder, fmt.Sprintf("%s_%02d.png", kid, i))
			if err := img.Write(name); err != nil {
				return fmt.Errorf("identify: persist %s: %w", kid, err)
			}
		}
		if ref := f.Ref(); ref != nil {
			name := filepath.Join(folder, fmt.Sprintf("%s_ref.png", kid))
			if err := ref.Write(name); err != nil {
				return fmt.Errorf("identify: persist %s ref: %w", kid, err)
			}
		}
	}
	return nil
}
