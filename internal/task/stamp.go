package task

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Digest hashes the fingerprint, every input path and the content of every
// file below each input. Missing inputs hash as missing.
func Digest(t *Task) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "fingerprint\x00%s\x00", t.Fingerprint)
	for _, in := range t.Inputs {
		if err := hashInput(h, in); err != nil {
			return "", fmt.Errorf("hashing input %s: %w", in, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashInput(h io.Writer, root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(h, "missing\x00%s\x00", root)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		fmt.Fprintf(h, "file\x00%s\x00", root)
		return hashFile(h, root)
	}
	// WalkDir visits entries in lexical order.
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "entry\x00%s\x00%s\x00", root, filepath.ToSlash(rel))
		return hashFile(h, p)
	})
}

func hashFile(h io.Writer, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

// CheckStamp compares the recorded stamp against the current inputs.
func CheckStamp(t *Task) (bool, error) {
	for _, out := range t.Outputs {
		if _, err := os.Stat(out); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	}
	recorded, err := os.ReadFile(t.StampPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	current, err := Digest(t)
	if err != nil {
		return false, err
	}
	return string(recorded) == current, nil
}

// WriteStamp records the digest of the current inputs.
func WriteStamp(t *Task) error {
	digest, err := Digest(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.StampPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(t.StampPath, []byte(digest), 0o644)
}
