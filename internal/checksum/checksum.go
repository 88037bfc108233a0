package checksum

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
)

// Algorithm represents a checksum hash algorithm.
type Algorithm string

const (
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
)

// Digest is a hex-encoded hash value.
type Digest string

// Parse parses a checksum value in format "algorithm:hash".
func Parse(value string) (Algorithm, Digest, error) {
	algo, hashValue, ok := strings.Cut(value, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid checksum format: expected 'algorithm:hash', got %q", value)
	}

	algorithm := Algorithm(algo)
	switch algorithm {
	case AlgorithmSHA256, AlgorithmSHA512:
	default:
		return "", "", fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}

	return algorithm, Digest(hashValue), nil
}

// String renders the digest in "algorithm:hash" form.
func String(algorithm Algorithm, digest Digest) string {
	return fmt.Sprintf("%s:%s", algorithm, digest)
}

// Calculate calculates the checksum of a file using the given algorithm.
func Calculate(filePath string, algorithm Algorithm) (Digest, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return CalculateFromReader(f, algorithm)
}

// CalculateFromReader calculates the checksum from a reader using the given algorithm.
func CalculateFromReader(r io.Reader, algorithm Algorithm) (Digest, error) {
	h, err := NewHash(algorithm)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}

	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// Verify verifies the checksum of a file.
func Verify(filePath string, algorithm Algorithm, expected Digest) error {
	actual, err := Calculate(filePath, algorithm)
	if err != nil {
		return err
	}

	if !strings.EqualFold(string(actual), string(expected)) {
		return qterrors.NewChecksumError(filePath, string(expected), string(actual))
	}

	return nil
}

// DetectAlgorithm detects the hash algorithm from the hash length.
func DetectAlgorithm(hashValue Digest) Algorithm {
	switch len(hashValue) {
	case 64: // SHA256
		return AlgorithmSHA256
	case 128: // SHA512
		return AlgorithmSHA512
	default:
		return ""
	}
}

// NewHash returns a new hash.Hash for the given algorithm.
func NewHash(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}
