package arr

import (
	"fmt"
	"strings"

	"github.com/hnipps/pulsarr/pkg/models"
	"golift.io/starr/radarr"
	"golift.io/starr/sonarr"
)

// mapSonarrSeriesToItem converts a starr Series to our models.SonarrItem
func mapSonarrSeriesToItem(s *sonarr.Series, instanceID int) models.SonarrItem {
	if s == nil {
		return models.SonarrItem{}
	}

	var guids []string
	if imdb := strings.TrimSpace(s.ImdbID); imdb != "" {
		guids = append(guids, models.NormalizeGUID("imdb:"+imdb))
	}
	if s.TvdbID > 0 {
		guids = append(guids, fmt.Sprintf("tvdb:%d", s.TvdbID))
	}
	if s.ID > 0 {
		guids = append(guids, fmt.Sprintf("sonarr:%d", s.ID))
	}

	return models.SonarrItem{
		ArrID:        s.ID,
		Title:        s.Title,
		GUIDs:        guids,
		InstanceID:   instanceID,
		SeriesStatus: strings.ToLower(s.Status),
	}
}

// mapSonarrSeriesToItems converts a slice of starr Series, dropping nil entries
func mapSonarrSeriesToItems(series []*sonarr.Series, instanceID int) []models.SonarrItem {
	result := make([]models.SonarrItem, 0, len(series))
	for _, s := range series {
		if s == nil {
			continue
		}
		result = append(result, mapSonarrSeriesToItem(s, instanceID))
	}
	return result
}

// mapRadarrMovieToItem converts a starr Movie to our models.RadarrItem
func mapRadarrMovieToItem(m *radarr.Movie, instanceID int) models.RadarrItem {
	if m == nil {
		return models.RadarrItem{}
	}

	var guids []string
	if imdb := strings.TrimSpace(m.ImdbID); imdb != "" {
		guids = append(guids, models.NormalizeGUID("imdb:"+imdb))
	}
	if m.TmdbID > 0 {
		guids = append(guids, fmt.Sprintf("tmdb:%d", m.TmdbID))
	}
	if m.ID > 0 {
		guids = append(guids, fmt.Sprintf("radarr:%d", m.ID))
	}

	return models.RadarrItem{
		ArrID:      m.ID,
		Title:      m.Title,
		GUIDs:      guids,
		InstanceID: instanceID,
	}
}

// mapRadarrMoviesToItems converts a slice of starr Movies, dropping nil entries
func mapRadarrMoviesToItems(movies []*radarr.Movie, instanceID int) []models.RadarrItem {
	result := make([]models.RadarrItem, 0, len(movies))
	for _, m := range movies {
		if m == nil {
			continue
		}
		result = append(result, mapRadarrMovieToItem(m, instanceID))
	}
	return result
}
