// Package naoqi provides the startup-time initialization of the NAO speech
// backend: vendor SDK layout verification, loader search-path registration
// and the remote ALTextToSpeech proxy handle.
package naoqi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const libDirName = "lib"

// SearchPathVar is the loader search-path variable the SDK directories are
// registered onto.
const SearchPathVar = "LD_LIBRARY_PATH"

// Static errors.
var (
	// ErrSDKRootMissing indicates the configured SDK path is not a directory.
	ErrSDKRootMissing = errors.New("SDK path is not a directory")
	// ErrSDKLibMissing indicates the SDK "lib" subdirectory is absent.
	ErrSDKLibMissing = errors.New("SDK lib subdirectory is not a directory")
	// ErrClientUnavailable indicates the SDK does not ship the client proxy
	// modules (commonly a path misconfiguration).
	ErrClientUnavailable = errors.New("naoqi client modules not found")
)

// clientMarkers are files whose presence identifies a usable client SDK
// installation.
var clientMarkers = []string{
	"naoqi.py",
	"qi.py",
	"_qi.so",
	"libqi.so",
}

// SDK describes a verified vendor SDK installation.
type SDK struct {
	Root   string
	LibDir string
}

// LocateSDK verifies that root and root/lib both exist as directories and
// returns the SDK handle. Any other layout is fatal to startup.
func LocateSDK(root string) (*SDK, error) {
	if !isDir(root) {
		return nil, fmt.Errorf("%w: %s", ErrSDKRootMissing, root)
	}

	libDir := filepath.Join(root, libDirName)
	if !isDir(libDir) {
		return nil, fmt.Errorf("%w: %s", ErrSDKLibMissing, libDir)
	}

	return &SDK{
		Root:   root,
		LibDir: libDir,
	}, nil
}

// RegisterSearchPath appends the SDK root and lib directories to the loader
// search-path variable, each exactly once. Re-running adds no duplicates.
func (s *SDK) RegisterSearchPath(getenv func(string) string, setenv func(string, string) error) error {
	current := getenv(SearchPathVar)

	for _, dir := range []string{s.Root, s.LibDir} {
		current = appendPathOnce(current, dir)
	}

	err := setenv(SearchPathVar, current)
	if err != nil {
		return fmt.Errorf("failed to register SDK search path: %w", err)
	}

	return nil
}

// ProbeClient verifies the SDK actually ships the client proxy modules.
// Failure here is distinct from a bad directory layout: the directories
// exist but do not contain a usable SDK.
func (s *SDK) ProbeClient() error {
	for _, marker := range clientMarkers {
		for _, dir := range []string{s.Root, s.LibDir} {
			info, err := os.Stat(filepath.Join(dir, marker))
			if err == nil && !info.IsDir() {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: check %s and %s", ErrClientUnavailable, s.Root, s.LibDir)
}

// appendPathOnce appends dir to a list-separated path value unless already
// present.
func appendPathOnce(path, dir string) string {
	separator := string(filepath.ListSeparator)

	for _, entry := range strings.Split(path, separator) {
		if entry == dir {
			return path
		}
	}

	if path == "" {
		return dir
	}

	return path + separator + dir
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
