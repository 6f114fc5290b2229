// Package dirsync mounts a workspace's remote filesystem into a local
// directory over SSHFS, one mount per workspace.
package dirsync

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/replit/desktop/internal/platform"
)

// replIDRe constrains workspace IDs used as key and mount names. Anything
// else could escape the key directory.
var replIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)

// Manager owns the SSH keys and the active SSHFS mounts.
type Manager struct {
	mu     sync.Mutex
	keyDir string
	mounts map[string]*mount
}

type mount struct {
	cmd *exec.Cmd
	dir string
}

// NewManager creates a manager that stores per-workspace SSH keys under
// keyDir.
func NewManager(keyDir string) *Manager {
	return &Manager{
		keyDir: filepath.Join(keyDir, "ssh"),
		mounts: make(map[string]*mount),
	}
}

// KeyPath returns the private key path for a workspace.
func (m *Manager) KeyPath(replID string) string {
	return filepath.Join(m.keyDir, replID)
}

// GenerateKeys creates an ed25519 keypair for the workspace if none exists
// and returns the public key for upload.
func (m *Manager) GenerateKeys(ctx context.Context, replID string) (string, error) {
	if !replIDRe.MatchString(replID) {
		return "", fmt.Errorf("invalid repl id %q", replID)
	}

	if err := os.MkdirAll(m.keyDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}

	keyPath := m.KeyPath(replID)
	pubPath := keyPath + ".pub"

	if _, err := os.Stat(pubPath); err != nil {
		cmd := exec.CommandContext(ctx, "ssh-keygen", "-t", "ed25519", "-N", "", "-q", "-f", keyPath)
		if out, err := cmd.CombinedOutput(); err != nil {
			return "", fmt.Errorf("ssh-keygen failed: %w: %s", err, strings.TrimSpace(string(out)))
		}
		log.Info().Str("repl_id", replID).Msg("Generated SSH keypair")
	}

	pub, err := os.ReadFile(pubPath)
	if err != nil {
		return "", fmt.Errorf("failed to read public key: %w", err)
	}
	return strings.TrimSpace(string(pub)), nil
}

// Sync mounts the workspace's remote filesystem at dir. The mount runs in
// the foreground so stopping it is a plain process kill.
func (m *Manager) Sync(replID, remote, dir string) error {
	if !replIDRe.MatchString(replID) {
		return fmt.Errorf("invalid repl id %q", replID)
	}
	if remote == "" || dir == "" {
		return fmt.Errorf("remote and directory are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mounts[replID]; ok {
		return fmt.Errorf("repl %s is already syncing", replID)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create mount directory: %w", err)
	}

	cmd := exec.Command("sshfs", remote, dir,
		"-f",
		"-o", "IdentityFile="+m.KeyPath(replID),
		"-o", "StrictHostKeyChecking=no",
		"-o", "reconnect",
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start sshfs: %w", err)
	}

	m.mounts[replID] = &mount{cmd: cmd, dir: dir}
	log.Info().Str("repl_id", replID).Str("dir", dir).Msg("Started directory sync")

	go func() {
		err := cmd.Wait()
		m.mu.Lock()
		if cur, ok := m.mounts[replID]; ok && cur.cmd == cmd {
			delete(m.mounts, replID)
		}
		m.mu.Unlock()
		if err != nil {
			log.Warn().Str("repl_id", replID).Err(err).Msg("sshfs exited")
		}
	}()

	return nil
}

// Stop ends the workspace's sync and unmounts its directory.
func (m *Manager) Stop(replID string) error {
	m.mu.Lock()
	mnt, ok := m.mounts[replID]
	if ok {
		delete(m.mounts, replID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("repl %s is not syncing", replID)
	}

	if mnt.cmd.Process != nil {
		if err := mnt.cmd.Process.Kill(); err != nil {
			log.Warn().Str("repl_id", replID).Err(err).Msg("Failed to kill sshfs")
		}
	}
	unmount(mnt.dir)
	log.Info().Str("repl_id", replID).Msg("Stopped directory sync")
	return nil
}

// StopAll ends every active sync. Called on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	mounts := m.mounts
	m.mounts = make(map[string]*mount)
	m.mu.Unlock()

	for replID, mnt := range mounts {
		if mnt.cmd.Process != nil {
			_ = mnt.cmd.Process.Kill()
		}
		unmount(mnt.dir)
		log.Info().Str("repl_id", replID).Msg("Stopped directory sync")
	}
}

// Active returns the IDs of the workspaces currently syncing.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.mounts))
	for id := range m.mounts {
		out = append(out, id)
	}
	return out
}

func unmount(dir string) {
	var cmd *exec.Cmd
	if platform.IsMac() {
		cmd = exec.Command("umount", dir)
	} else {
		cmd = exec.Command("fusermount", "-u", dir)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Debug().Str("dir", dir).Err(err).Str("output", strings.TrimSpace(string(out))).Msg("Unmount failed")
	}
}
