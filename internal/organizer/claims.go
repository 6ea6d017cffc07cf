package organizer

import (
	"path/filepath"
	"sync"
)

// Claims records which source file first mapped to each destination path
// during a run. A later source mapping to an already claimed path is a
// collision; the same source claiming its own path again is not.
type Claims struct {
	mu     sync.Mutex
	owners map[string]string // destination path -> source path
}

// NewClaims creates an empty claim set.
func NewClaims() *Claims {
	return &Claims{owners: make(map[string]string)}
}

// Claim reserves destDir/name for source.
// It returns a DestinationCollision MoveError if another source holds it.
func (c *Claims) Claim(destDir, name, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := filepath.Join(destDir, name)
	if owner, ok := c.owners[key]; ok && owner != source {
		return &MoveError{
			Type: DestinationCollision,
			Path: key,
			Err:  &collisionError{owner: owner},
		}
	}
	c.owners[key] = source
	return nil
}

// Release drops a claim, used when the operation that made it failed.
func (c *Claims) Release(destDir, name, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := filepath.Join(destDir, name)
	if c.owners[key] == source {
		delete(c.owners, key)
	}
}

// Owner returns the source path holding destDir/name, if any.
func (c *Claims) Owner(destDir, name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[filepath.Join(destDir, name)]
	return owner, ok
}

// Len returns the number of claimed destinations.
func (c *Claims) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.owners)
}

type collisionError struct {
	owner string
}

func (e *collisionError) Error() string {
	return "already claimed by " + filepath.Base(e.owner)
}
