package repository

import (
	"io/fs"

	"github.com/okian/ctfscores/internal/codec"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithCodec sets the codec used to read and write the file.
func WithCodec(c *codec.Codec) Option {
	return func(s *FileStore) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithFileMode sets the permission bits of files the store creates.
func WithFileMode(perm fs.FileMode) Option {
	return func(s *FileStore) {
		if perm != 0 {
			s.perm = perm
		}
	}
}
