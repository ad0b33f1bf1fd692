package update

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// BinaryReplacer swaps the installed executable for a staged update, keeping
// a backup until the new binary proves it can start.
type BinaryReplacer struct {
	currentPath string
	backupPath  string
	nextPath    string
	verifyArgs  []string
}

// NewBinaryReplacer creates a replacer for the executable at currentPath
func NewBinaryReplacer(currentPath string) *BinaryReplacer {
	return &BinaryReplacer{
		currentPath: currentPath,
		backupPath:  currentPath + ".backup",
		nextPath:    currentPath + ".next",
		verifyArgs:  []string{"--version"},
	}
}

// WithVerifyArgs sets the arguments used to smoke test an installed binary.
// No arguments disables the check.
func (r *BinaryReplacer) WithVerifyArgs(args ...string) *BinaryReplacer {
	r.verifyArgs = args
	return r
}

// Replace installs newBinary over the current executable. newBinary itself is
// left in the download cache.
func (r *BinaryReplacer) Replace(newBinary string) error {
	if err := r.createBackup(); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	// The staged download usually lives on another filesystem, so it is
	// copied next to the target first and renamed from there.
	if err := copyFile(newBinary, r.nextPath, 0755); err != nil {
		_ = os.Remove(r.backupPath)
		return fmt.Errorf("failed to stage binary: %w", err)
	}

	if err := os.Rename(r.nextPath, r.currentPath); err != nil {
		_ = os.Remove(r.nextPath)
		_ = os.Remove(r.backupPath)
		return fmt.Errorf("failed to replace binary: %w", err)
	}

	if err := r.verifyBinary(r.currentPath); err != nil {
		if rbErr := r.Rollback(); rbErr != nil {
			log.Errorf("rollback of %s failed: %v", r.currentPath, rbErr)
		}
		return fmt.Errorf("new binary verification failed: %w", err)
	}

	_ = os.Remove(r.backupPath)

	log.Infof("installed update to %s", r.currentPath)
	return nil
}

// Rollback restores the backup taken by the last Replace
func (r *BinaryReplacer) Rollback() error {
	if _, err := os.Stat(r.backupPath); err != nil {
		return fmt.Errorf("backup not found: %s", r.backupPath)
	}

	log.WithField("path", r.currentPath).Warn("restoring previous binary")

	if err := os.Rename(r.backupPath, r.currentPath); err != nil {
		return fmt.Errorf("restore %s: %w", r.currentPath, err)
	}
	if err := os.Chmod(r.currentPath, 0755); err != nil {
		return fmt.Errorf("restore %s: %w", r.currentPath, err)
	}
	if err := r.verifyBinary(r.currentPath); err != nil {
		return fmt.Errorf("restored binary is broken: %w", err)
	}
	return nil
}

// createBackup copies the current binary, keeping its mode
func (r *BinaryReplacer) createBackup() error {
	info, err := os.Stat(r.currentPath)
	if err != nil {
		return err
	}
	return copyFile(r.currentPath, r.backupPath, info.Mode().Perm())
}

// copyFile writes src to dst with the given mode, removing dst on failure
func copyFile(src, dst string, mode os.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	// OpenFile only applies mode to new files
	return out.Chmod(mode)
}

// verifyBinary runs path with verifyArgs and expects it to exit cleanly
func (r *BinaryReplacer) verifyBinary(path string) error {
	if len(r.verifyArgs) == 0 {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("binary verification failed: %w", err)
		}
		return nil
	}
	cmd := exec.Command(path, r.verifyArgs...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("binary verification failed: %w", err)
	}
	return nil
}
