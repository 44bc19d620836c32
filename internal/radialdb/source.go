package radialdb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Zachdehooge/supercell-wx/internal/level2"
	"github.com/Zachdehooge/supercell-wx/internal/monitoring"
)

// Source serves the radials of a site's latest volume, or of one pinned
// volume, to a sweep view.
type Source struct {
	store  *Store
	siteID string

	mu       sync.Mutex
	volumeID string
}

// NewSource returns a source following the newest volume of siteID.
func NewSource(store *Store, siteID string) *Source {
	return &Source{store: store, siteID: siteID}
}

// Pin fixes the source to one volume. An empty ID follows the latest again.
func (s *Source) Pin(volumeID string) {
	s.mu.Lock()
	s.volumeID = volumeID
	s.mu.Unlock()
}

// GetRadials returns the radials of the requested elevation carrying the
// product's moment block. A site with nothing stored yet yields no radials
// and no error; a pinned volume that does not exist is an error.
func (s *Source) GetRadials(ctx context.Context, product level2.Product, elevation int) ([]*level2.Radial, error) {
	bt, ok := level2.BlockTypeFor(product)
	if !ok {
		return nil, fmt.Errorf("no data block for product %q", product)
	}

	s.mu.Lock()
	volumeID := s.volumeID
	s.mu.Unlock()

	if volumeID == "" {
		v, err := s.store.LatestVolume(ctx, s.siteID)
		if errors.Is(err, ErrNoVolume) {
			monitoring.Debugf("[radialdb] No volume stored for site %q yet", s.siteID)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		volumeID = v.ID
	}

	radials, err := s.store.LoadRadials(ctx, volumeID, elevation, bt)
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("[radialdb] Loaded %d radials of %s elevation %d from volume %s",
		len(radials), bt, elevation, volumeID)
	return radials, nil
}
