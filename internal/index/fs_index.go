package index

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"ctph/internal/fuzzy"
	"ctph/internal/identity"
)

// FileSystemIndex persists signatures as small text files in a billy
// filesystem and serves lookups from an InMemoryIndex loaded at start up.
type FileSystemIndex struct {
	*InMemoryIndex
	fs billy.Filesystem
	id string
}

// Assert that FileSystemIndex implements the Index interface
var _ Index = (*FileSystemIndex)(nil)

// Assert that FileSystemIndex implements the identity.Provider interface
var _ identity.Provider = (*FileSystemIndex)(nil)

const idFile = "id"

// NewFileSystemIndex opens the index stored in fs, creating an identity
// for it on first use, and loads every stored signature.
func NewFileSystemIndex(fs billy.Filesystem) (*FileSystemIndex, error) {
	x := &FileSystemIndex{
		InMemoryIndex: NewInMemoryIndex(),
		fs:            fs,
	}

	id, err := x.loadID()
	if err != nil {
		return nil, err
	}
	x.id = id

	if err := x.load(); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *FileSystemIndex) ID() string {
	return x.id
}

func (x *FileSystemIndex) loadID() (string, error) {
	if data, err := util.ReadFile(x.fs, idFile); err == nil && len(data) == 64 {
		return string(data), nil
	}

	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	id := hex.EncodeToString(idBytes)
	if err := util.WriteFile(x.fs, idFile, []byte(id), 0644); err != nil {
		return "", fmt.Errorf("failed to write index id: %w", err)
	}
	return id, nil
}

func (x *FileSystemIndex) load() error {
	return util.Walk(x.fs, ".", func(name string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || !isAddress(path.Base(name)) {
			return nil
		}

		data, err := util.ReadFile(x.fs, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		sig, err := fuzzy.Parse(strings.TrimSuffix(string(data), "\n"))
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		id := ID(sig)
		if id != path.Base(name) {
			return fmt.Errorf("failed to load %s: content address is %s", name, id)
		}

		x.mu.Lock()
		x.addLocked(id, sig)
		x.mu.Unlock()
		return nil
	})
}

// addressToPath converts an address (e.g., "aabbcc...") to a structured path
// like "aa/bb/aabbcc...".
func addressToPath(address string) string {
	if len(address) < 4 {
		return address
	}
	return path.Join(address[0:2], address[2:4], address)
}

func isAddress(name string) bool {
	if len(name) != 64 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

// Add stores sig durably before making it visible to Match.
func (x *FileSystemIndex) Add(sig fuzzy.Signature) (string, error) {
	if !fuzzy.ValidBlockSize(sig.BlockSize) {
		return "", fmt.Errorf("%w: invalid block size %d", fuzzy.ErrMalformedSignature, sig.BlockSize)
	}
	id := ID(sig)
	if _, ok := x.Get(id); ok {
		return id, nil
	}

	if err := x.write(addressToPath(id), []byte(sig.String()+"\n")); err != nil {
		return "", err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.addLocked(id, sig)
	return id, nil
}

// write stores data through a temporary file renamed into place, so a
// crash never leaves a partial signature behind.
func (x *FileSystemIndex) write(name string, data []byte) error {
	if err := x.fs.MkdirAll(path.Dir(name), 0755); err != nil {
		return err
	}
	tmp, err := x.fs.TempFile(path.Dir(name), "upload-")
	if err != nil {
		return err
	}
	defer x.fs.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return x.fs.Rename(tmp.Name(), name)
}

// Remove deletes the stored file before dropping the signature from
// memory, so a failed delete leaves both in place.
func (x *FileSystemIndex) Remove(id string) error {
	if _, ok := x.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := x.fs.Remove(addressToPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}
	return x.InMemoryIndex.Remove(id)
}

// Export writes every stored signature in ssdeep's known hashes format.
func (x *FileSystemIndex) Export(w io.Writer) error {
	return fuzzy.WriteKnown(w, x.All())
}
