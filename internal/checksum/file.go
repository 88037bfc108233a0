package checksum

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SidecarExt is appended to an artifact path to name its checksum file.
const SidecarExt = ".sha256"

// SidecarPath returns the checksum file path for artifact.
func SidecarPath(artifact string) string {
	return artifact + SidecarExt
}

// WriteSidecar hashes artifact and writes "<hash>  <basename>" next to it,
// the format sha256sum produces.
func WriteSidecar(artifact string) (Digest, error) {
	digest, err := Calculate(artifact, AlgorithmSHA256)
	if err != nil {
		return "", err
	}

	line := fmt.Sprintf("%s  %s\n", digest, filepath.Base(artifact))
	if err := os.WriteFile(SidecarPath(artifact), []byte(line), 0644); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}
	return digest, nil
}

// VerifySidecar checks artifact against the hash recorded in its sidecar file.
func VerifySidecar(artifact string) error {
	content, err := os.ReadFile(SidecarPath(artifact))
	if err != nil {
		return fmt.Errorf("failed to read checksum file: %w", err)
	}

	algo, digest, err := ParseFile(content, filepath.Base(artifact))
	if err != nil {
		return err
	}
	return Verify(artifact, algo, digest)
}

// ParseFile extracts the hash for filename from GNU coreutils formatted content:
// "<hash>  <filename>" or "<hash> *<filename>".
func ParseFile(content []byte, filename string) (Algorithm, Digest, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		hash, name := parseGNULine(strings.TrimSpace(scanner.Text()))
		if hash == "" || name != filename {
			continue
		}
		algo := DetectAlgorithm(Digest(hash))
		if algo == "" || !isHexString(hash) {
			return "", "", fmt.Errorf("invalid hash for %s: %q", filename, hash)
		}
		return algo, Digest(strings.ToLower(hash)), nil
	}
	return "", "", fmt.Errorf("checksum not found for %s", filename)
}

func parseGNULine(line string) (hash, filename string) {
	hash, rest, ok := strings.Cut(line, " ")
	if !ok {
		return "", ""
	}
	rest = strings.TrimLeft(rest, " ")
	return hash, strings.TrimPrefix(rest, "*")
}

// isHexString checks if a string contains only hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
	}
	return len(s) > 0
}
