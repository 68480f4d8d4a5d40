package deletesync

import (
	"fmt"

	"github.com/hnipps/pulsarr/pkg/models"
)

// PerformSafetyCheck counts the inventory items no watchlist references and
// rejects the run when their share exceeds maxPercent. An empty inventory is
// 0% and therefore safe.
func PerformSafetyCheck(series []models.SonarrItem, movies []models.RadarrItem, watchlist models.GUIDSet, maxPercent float64) models.SafetyCheck {
	total := len(series) + len(movies)

	candidates := 0
	for _, s := range series {
		if !watchlist.Intersects(s.GUIDs) {
			candidates++
		}
	}
	for _, m := range movies {
		if !watchlist.Intersects(m.GUIDs) {
			candidates++
		}
	}

	var percentage float64
	if total > 0 {
		percentage = float64(candidates) * 100 / float64(total)
	}

	check := models.SafetyCheck{
		Safe:               percentage <= maxPercent,
		CandidateCount:     candidates,
		TotalCount:         total,
		DeletionPercentage: percentage,
	}

	if check.Safe {
		check.Message = fmt.Sprintf("Safety check passed: %d of %d items (%.2f%%) are deletion candidates, limit is %.2f%%",
			candidates, total, percentage, maxPercent)
	} else {
		check.Message = fmt.Sprintf("Safety check failed: would delete %d of %d items (%.2f%%), which exceeds the maximum allowed %.2f%%",
			candidates, total, percentage, maxPercent)
	}
	return check
}
