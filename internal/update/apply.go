package update

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// applyUpdate swaps the running executable for the downloaded artifact and
// launches the new build. The old binary stays behind as a .old file until
// the next update overwrites it; deleting it while it still backs the
// current process fails on Windows.
func applyUpdate(path string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate current executable: %w", err)
	}

	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("cannot mark update executable: %w", err)
	}

	backup := exe + ".old"
	os.Remove(backup)
	if err := os.Rename(exe, backup); err != nil {
		return fmt.Errorf("cannot move current executable aside: %w", err)
	}

	if err := moveFile(path, exe); err != nil {
		// Roll back so the install still launches.
		if rbErr := os.Rename(backup, exe); rbErr != nil {
			log.Error().Err(rbErr).Msg("Rollback after failed update swap also failed")
		}
		return fmt.Errorf("cannot install update: %w", err)
	}

	cmd := exec.Command(exe)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot launch updated build: %w", err)
	}
	log.Info().Str("exe", exe).Msg("Launched updated build")
	return nil
}

// moveFile renames when possible and copies when the temp directory sits on
// a different filesystem.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
