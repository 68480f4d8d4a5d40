package deletesync

import (
	"context"

	"github.com/hnipps/pulsarr/pkg/models"
)

// protection is the protected GUID set of one run. guids stays nil until the
// set is computed; enabled with nil guids must never reach a deletion.
type protection struct {
	enabled bool
	guids   models.GUIDSet
}

func (p protection) ready() bool {
	return !p.enabled || p.guids != nil
}

func (p protection) covers(guids []string) bool {
	return p.enabled && p.guids.Intersects(guids)
}

// resolveProtection materializes the protected set when protection is enabled.
// Missing playlists or a failed fetch abort the run.
func (s *Service) resolveProtection(ctx context.Context, inv inventory) (protection, error) {
	if !s.cfg.EnablePlexPlaylistProtection {
		return protection{}, nil
	}

	playlists, err := s.deps.Protection.GetOrCreateProtectionPlaylists(ctx, true)
	if err != nil {
		return protection{}, abort("could not find or create protection playlists", len(inv.series), len(inv.movies), err)
	}
	if len(playlists) == 0 {
		return protection{}, abort("no protection playlists are available for any user", len(inv.series), len(inv.movies), nil)
	}

	guids, err := s.deps.Protection.GetProtectedItems(ctx)
	if err != nil {
		return protection{}, abort("failed to fetch protected items", len(inv.series), len(inv.movies), err)
	}
	if guids == nil {
		guids = models.NewGUIDSet()
	}

	s.logger.Info("Playlist protection active: %d playlist(s), %d protected GUID(s)", len(playlists), guids.Len())
	return protection{enabled: true, guids: guids}, nil
}
