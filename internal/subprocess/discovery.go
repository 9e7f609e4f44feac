package subprocess

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wagiedev/mcp-stdio-go/internal/errors"
)

// commonDirs lists install locations checked after PATH. Servers launched
// from services or IDEs often run with a PATH that misses user-level tools
// such as npx or uvx.
func commonDirs() []string {
	dirs := []string{"/usr/local/bin", "/usr/bin", "/opt/homebrew/bin"}

	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, ".local/bin"),
			filepath.Join(home, ".npm-global/bin"),
			filepath.Join(home, ".cargo/bin"),
			filepath.Join(home, "go/bin"),
		)
	}

	return dirs
}

// resolveCommand locates the server executable. A name containing a path
// separator is used as given; a bare name is looked up in PATH and then in
// the common install locations.
func resolveCommand(log *slog.Logger, name string, dirs []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		path, err := exec.LookPath(name)
		if err != nil {
			log.Debug("Explicit command path not usable", "path", name, "error", err)

			return "", &errors.CommandNotFoundError{Name: name, SearchedPaths: []string{name}}
		}

		return path, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		log.Debug("Found command in PATH", "command", name, "path", path)

		return path, nil
	}

	searched := make([]string, 0, len(dirs)+1)
	searched = append(searched, "$PATH")

	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		searched = append(searched, candidate)

		if isExecutable(candidate) {
			log.Debug("Found command outside PATH", "command", name, "path", candidate)

			return candidate, nil
		}
	}

	log.Warn("Command not found in any searched paths", "command", name, "searched_paths", searched)

	return "", &errors.CommandNotFoundError{Name: name, SearchedPaths: searched}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	return info.Mode().Perm()&0o111 != 0
}
