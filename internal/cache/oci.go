package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/types"

	"github.com/akshaybabloo/actions-setup-qt/internal/checksum"
	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
)

// LayerMediaType is the media type of the single layer of a cache artifact.
const LayerMediaType types.MediaType = "application/vnd.setup-qt.cache.v1.tar+xz"

// OCIStore keeps archives as single-layer artifacts in an OCI registry, one
// tag per cache key.
type OCIStore struct {
	repo     name.Repository
	tempDir  string
	auth     authn.Authenticator
	keychain authn.Keychain
	options  []remote.Option
}

var _ Store = (*OCIStore)(nil)

// OCIOption configures an OCIStore.
type OCIOption func(*OCIStore)

// WithAuthenticator uses a for every registry call instead of the keychain.
func WithAuthenticator(a authn.Authenticator) OCIOption {
	return func(s *OCIStore) {
		s.auth = a
	}
}

// WithKeychain replaces the default keychain.
func WithKeychain(k authn.Keychain) OCIOption {
	return func(s *OCIStore) {
		s.keychain = k
	}
}

// WithRemoteOptions adds options passed to every registry call. They must not
// carry credentials; use WithAuthenticator or WithKeychain for that.
func WithRemoteOptions(opts ...remote.Option) OCIOption {
	return func(s *OCIStore) {
		s.options = append(s.options, opts...)
	}
}

// NewOCIStore creates an OCIStore for repository (e.g. "ghcr.io/org/qt-cache").
// Credentials come from authn.DefaultKeychain unless WithAuthenticator or
// WithKeychain is given. tempDir holds the archive while it is being built.
func NewOCIStore(repository, tempDir string, opts ...OCIOption) (*OCIStore, error) {
	repo, err := name.NewRepository(repository)
	if err != nil {
		return nil, fmt.Errorf("invalid cache repository %q: %w", repository, err)
	}
	s := &OCIStore{repo: repo, tempDir: tempDir, keychain: authn.DefaultKeychain}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Backend implements Store.
func (s *OCIStore) Backend() Backend {
	return BackendOCI
}

// Reference returns the tag reference used for key.
func (s *OCIStore) Reference(key string) name.Tag {
	return s.repo.Tag(Tag(key))
}

// Restore implements Store.
func (s *OCIStore) Restore(ctx context.Context, key string, paths []string) (bool, error) {
	ref := s.Reference(key)
	slog.Debug("looking up remote cache entry", "ref", ref.String())

	img, err := remote.Image(ref, s.remoteOptions(ctx)...)
	if err != nil {
		if isNotFoundError(err) {
			slog.Debug("no remote cache entry", "ref", ref.String())
			return false, nil
		}
		return false, qterrors.NewCacheRestoreError(string(BackendOCI), key, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return false, qterrors.NewCacheRestoreError(string(BackendOCI), key, err)
	}
	if len(layers) != 1 {
		return false, qterrors.NewCacheRestoreError(string(BackendOCI), key,
			fmt.Errorf("expected 1 layer, got %d", len(layers)))
	}

	rc, err := layers[0].Compressed()
	if err != nil {
		return false, qterrors.NewCacheRestoreError(string(BackendOCI), key, err)
	}
	defer rc.Close()

	if err := ExtractArchive(rc, paths); err != nil {
		return false, qterrors.NewCacheRestoreError(string(BackendOCI), key, err)
	}

	slog.Debug("restored remote cache entry", "ref", ref.String())
	return true, nil
}

// Save implements Store.
func (s *OCIStore) Save(ctx context.Context, key string, paths []string) error {
	ref := s.Reference(key)

	tmp, err := os.CreateTemp(s.tempDir, "setup-qt-cache-*"+archiveExt)
	if err != nil {
		return qterrors.NewCacheSaveError(string(BackendOCI), key, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteArchive(tmp, paths); err != nil {
		tmp.Close()
		return qterrors.NewCacheSaveError(string(BackendOCI), key, err)
	}
	if err := tmp.Close(); err != nil {
		return qterrors.NewCacheSaveError(string(BackendOCI), key, err)
	}

	layer, err := newFileLayer(tmp.Name())
	if err != nil {
		return qterrors.NewCacheSaveError(string(BackendOCI), key, err)
	}

	img := mutate.MediaType(empty.Image, types.OCIManifestSchema1)
	img, err = mutate.Append(img, mutate.Addendum{
		Layer: layer,
		Annotations: map[string]string{
			"org.opencontainers.image.title": key,
		},
	})
	if err != nil {
		return qterrors.NewCacheSaveError(string(BackendOCI), key, err)
	}

	slog.Debug("pushing remote cache entry", "ref", ref.String())
	if err := remote.Write(ref, img, s.remoteOptions(ctx)...); err != nil {
		return qterrors.NewCacheSaveError(string(BackendOCI), key, err)
	}
	return nil
}

// Registry returns the registry host of the repository.
func (s *OCIStore) Registry() string {
	return s.repo.RegistryStr()
}

func (s *OCIStore) remoteOptions(ctx context.Context) []remote.Option {
	opts := []remote.Option{remote.WithContext(ctx)}
	if s.auth != nil {
		opts = append(opts, remote.WithAuth(s.auth))
	} else {
		opts = append(opts, remote.WithAuthFromKeychain(s.keychain))
	}
	return append(opts, s.options...)
}

// fileLayer is an opaque blob layer backed by a file on disk. The blob is
// already compressed, so its diff id equals its digest.
type fileLayer struct {
	path   string
	digest v1.Hash
	size   int64
}

var _ v1.Layer = (*fileLayer)(nil)

func newFileLayer(path string) (*fileLayer, error) {
	digest, err := checksum.Calculate(path, checksum.AlgorithmSHA256)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &fileLayer{
		path:   path,
		digest: v1.Hash{Algorithm: string(checksum.AlgorithmSHA256), Hex: string(digest)},
		size:   info.Size(),
	}, nil
}

func (l *fileLayer) Digest() (v1.Hash, error)             { return l.digest, nil }
func (l *fileLayer) DiffID() (v1.Hash, error)             { return l.digest, nil }
func (l *fileLayer) Size() (int64, error)                 { return l.size, nil }
func (l *fileLayer) MediaType() (types.MediaType, error)  { return LayerMediaType, nil }
func (l *fileLayer) Compressed() (io.ReadCloser, error)   { return os.Open(l.path) }
func (l *fileLayer) Uncompressed() (io.ReadCloser, error) { return os.Open(l.path) }

// isNotFoundError checks if an error is an HTTP 404 from the OCI registry.
func isNotFoundError(err error) bool {
	var transportErr *transport.Error
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode == http.StatusNotFound
	}
	return false
}
