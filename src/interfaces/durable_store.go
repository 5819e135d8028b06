package interfaces

import "wwasd-relay/src/models"

// -----------------------------------------------------------------------------
// IDurableStore defines the contract for cache persistence.
// -----------------------------------------------------------------------------

type IDurableStore interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the backing database and sets up the schema.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveStateDump replaces the persisted state cache with a full dump.
	// Each call writes the complete record set in one transaction so a
	// reader never observes a partial cache.
	SaveStateDump(recs []models.MEventRecord) error

	// -----------------------------------------------------------------------------

	// LoadStateDump reads the persisted state cache. An empty database
	// returns an empty slice, not an error.
	LoadStateDump() ([]models.MEventRecord, error)

	// -----------------------------------------------------------------------------

	// SavePortSnapshot replaces the persisted position snapshot.
	SavePortSnapshot(snap *models.MPortSnapshot) error

	// -----------------------------------------------------------------------------

	// LoadPortSnapshot reads the persisted position snapshot, nil when none
	// has ever been written.
	LoadPortSnapshot() (*models.MPortSnapshot, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
