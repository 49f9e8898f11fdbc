package utils

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AudioExtensions are the file types picked up by a directory scan.
var AudioExtensions = []string{".wav", ".mp3", ".flac", ".ogg"}

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// IsAudioFile reports whether path has one of AudioExtensions (case-insensitive).
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindAudioFiles walks dir recursively and returns every audio file, sorted.
func FindAudioFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsAudioFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

// ReadFileList reads one path per line, skipping blank lines.
func ReadFileList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading file list %s: %w", path, err)
	}
	return paths, nil
}
