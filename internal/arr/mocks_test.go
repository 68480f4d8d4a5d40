package arr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golift.io/starr"
	"golift.io/starr/radarr"
	"golift.io/starr/sonarr"
)

type mockLogger struct {
	mu            sync.Mutex
	debugMessages []string
	infoMessages  []string
	warnMessages  []string
	errorMessages []string
}

func (m *mockLogger) record(dst *[]string, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	m.mu.Lock()
	*dst = append(*dst, msg)
	m.mu.Unlock()
}

func (m *mockLogger) Debug(msg string, args ...interface{}) {
	m.record(&m.debugMessages, msg, args...)
}

func (m *mockLogger) Info(msg string, args ...interface{}) {
	m.record(&m.infoMessages, msg, args...)
}

func (m *mockLogger) Warn(msg string, args ...interface{}) {
	m.record(&m.warnMessages, msg, args...)
}

func (m *mockLogger) Error(msg string, args ...interface{}) {
	m.record(&m.errorMessages, msg, args...)
}

type deleteCall struct {
	id          int64
	deleteFiles bool
}

type fakeSonarrAPI struct {
	series    []*sonarr.Series
	tags      []*starr.Tag
	seriesErr error
	tagsErr   error
	deleteErr error

	tagCalls int
	deletes  []deleteCall
}

func (f *fakeSonarrAPI) GetAllSeriesContext(ctx context.Context) ([]*sonarr.Series, error) {
	return f.series, f.seriesErr
}

func (f *fakeSonarrAPI) DeleteSeriesContext(ctx context.Context, seriesID int, deleteFiles bool, importExclude bool) error {
	f.deletes = append(f.deletes, deleteCall{id: int64(seriesID), deleteFiles: deleteFiles})
	return f.deleteErr
}

func (f *fakeSonarrAPI) GetTagsContext(ctx context.Context) ([]*starr.Tag, error) {
	f.tagCalls++
	return f.tags, f.tagsErr
}

type fakeRadarrAPI struct {
	movies    []*radarr.Movie
	tags      []*starr.Tag
	moviesErr error
	deleteErr error

	tagCalls int
	deletes  []deleteCall
}

func (f *fakeRadarrAPI) GetMovieContext(ctx context.Context, params *radarr.GetMovie) ([]*radarr.Movie, error) {
	return f.movies, f.moviesErr
}

func (f *fakeRadarrAPI) DeleteMovieContext(ctx context.Context, movieID int64, deleteFiles, addImportExclusion bool) error {
	f.deletes = append(f.deletes, deleteCall{id: movieID, deleteFiles: deleteFiles})
	return f.deleteErr
}

func (f *fakeRadarrAPI) GetTagsContext(ctx context.Context) ([]*starr.Tag, error) {
	f.tagCalls++
	return f.tags, nil
}

var errBoom = errors.New("boom")
