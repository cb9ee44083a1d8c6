package memory

import (
	"testing"

	"moneh/internal/storage"
	"moneh/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		return New()
	})
}
