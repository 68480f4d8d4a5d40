package deletesync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/pkg/models"
)

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) add(level, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	m.mu.Lock()
	m.messages = append(m.messages, level+" "+msg)
	m.mu.Unlock()
}

func (m *mockLogger) contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func (m *mockLogger) Debug(msg string, args ...interface{}) { m.add("DEBUG", msg, args...) }
func (m *mockLogger) Info(msg string, args ...interface{})  { m.add("INFO", msg, args...) }
func (m *mockLogger) Warn(msg string, args ...interface{})  { m.add("WARN", msg, args...) }
func (m *mockLogger) Error(msg string, args ...interface{}) { m.add("ERROR", msg, args...) }

type fakeStore struct {
	users   []models.User
	shows   []models.WatchlistItem
	movies  []models.WatchlistItem
	err     error
	queried [][]uint64
}

func (f *fakeStore) GetAllUsers() ([]models.User, error) {
	return f.users, f.err
}

func (f *fakeStore) GetAllShowWatchlistItems() ([]models.WatchlistItem, error) {
	return f.shows, f.err
}

func (f *fakeStore) GetAllMovieWatchlistItems() ([]models.WatchlistItem, error) {
	return f.movies, f.err
}

func (f *fakeStore) GetWatchlistItemsByUsers(userIDs []uint64) ([]models.WatchlistItem, error) {
	f.queried = append(f.queried, userIDs)
	wanted := make(map[uint64]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []models.WatchlistItem
	for _, item := range append(append([]models.WatchlistItem{}, f.shows...), f.movies...) {
		if wanted[item.UserID] {
			out = append(out, item)
		}
	}
	return out, f.err
}

type fakeSonarrInstance struct {
	id        int
	deleteErr error
	onDelete  func()
	mu        sync.Mutex
	deleted   []models.SonarrItem
}

func (f *fakeSonarrInstance) ID() int      { return f.id }
func (f *fakeSonarrInstance) Name() string { return fmt.Sprintf("sonarr-%d", f.id) }

func (f *fakeSonarrInstance) FetchSeries(ctx context.Context, bypassExclusions bool) ([]models.SonarrItem, error) {
	return nil, nil
}

func (f *fakeSonarrInstance) DeleteFromSonarr(ctx context.Context, item models.SonarrItem, deleteFiles bool) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, item)
	f.mu.Unlock()
	if f.onDelete != nil {
		f.onDelete()
	}
	return f.deleteErr
}

type fakeRadarrInstance struct {
	id          int
	deleteErrs  map[string]error
	onDelete    func()
	mu          sync.Mutex
	deleted     []models.RadarrItem
	deleteFiles []bool
}

func (f *fakeRadarrInstance) ID() int      { return f.id }
func (f *fakeRadarrInstance) Name() string { return fmt.Sprintf("radarr-%d", f.id) }

func (f *fakeRadarrInstance) FetchMovies(ctx context.Context, bypassExclusions bool) ([]models.RadarrItem, error) {
	return nil, nil
}

func (f *fakeRadarrInstance) DeleteFromRadarr(ctx context.Context, item models.RadarrItem, deleteFiles bool) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, item)
	f.deleteFiles = append(f.deleteFiles, deleteFiles)
	f.mu.Unlock()
	if f.onDelete != nil {
		f.onDelete()
	}
	return f.deleteErrs[item.Title]
}

type fakeSonarrManager struct {
	series    []models.SonarrItem
	err       error
	instances map[int]*fakeSonarrInstance
	bypass    []bool
}

func (f *fakeSonarrManager) FetchAllSeries(ctx context.Context, bypassExclusions bool) ([]models.SonarrItem, error) {
	f.bypass = append(f.bypass, bypassExclusions)
	return f.series, f.err
}

func (f *fakeSonarrManager) GetSonarrService(id int) (arr.SonarrInstance, bool) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, false
	}
	return inst, true
}

func (f *fakeSonarrManager) deleteCount() int {
	n := 0
	for _, inst := range f.instances {
		n += len(inst.deleted)
	}
	return n
}

type fakeRadarrManager struct {
	movies    []models.RadarrItem
	err       error
	instances map[int]*fakeRadarrInstance
	bypass    []bool
}

func (f *fakeRadarrManager) FetchAllMovies(ctx context.Context, bypassExclusions bool) ([]models.RadarrItem, error) {
	f.bypass = append(f.bypass, bypassExclusions)
	return f.movies, f.err
}

func (f *fakeRadarrManager) GetRadarrService(id int) (arr.RadarrInstance, bool) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, false
	}
	return inst, true
}

func (f *fakeRadarrManager) deleteCount() int {
	n := 0
	for _, inst := range f.instances {
		n += len(inst.deleted)
	}
	return n
}

type fakeRefresher struct {
	selfErr   error
	othersErr error
	calls     int32
	block     chan struct{}
	started   chan struct{}
}

func (f *fakeRefresher) GetSelfWatchlist(ctx context.Context) error {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.selfErr
}

func (f *fakeRefresher) GetOthersWatchlists(ctx context.Context) error {
	return f.othersErr
}

type fakeProtection struct {
	playlists    map[uint64]string
	playlistsErr error
	guids        models.GUIDSet
	itemsErr     error
	clearCalls   int
	itemCalls    int
}

func (f *fakeProtection) GetOrCreateProtectionPlaylists(ctx context.Context, createIfMissing bool) (map[uint64]string, error) {
	return f.playlists, f.playlistsErr
}

func (f *fakeProtection) GetProtectedItems(ctx context.Context) (models.GUIDSet, error) {
	f.itemCalls++
	return f.guids, f.itemsErr
}

func (f *fakeProtection) ClearWorkflowCaches() {
	f.clearCalls++
}

type fakeNotifier struct {
	calls   int
	err     error
	results []*models.DeletionResult
}

func (f *fakeNotifier) NotifyDeleteSync(ctx context.Context, result *models.DeletionResult, dryRun bool) error {
	f.calls++
	f.results = append(f.results, result)
	return f.err
}

type fakeReports struct {
	reports []*models.DeleteSyncReport
	printed []bool
}

func (f *fakeReports) GenerateReport(report *models.DeleteSyncReport, printToTerminal bool) error {
	f.reports = append(f.reports, report)
	f.printed = append(f.printed, printToTerminal)
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	runs     []string
	items    map[string]int
	duration time.Duration
}

func (f *fakeMetrics) ObserveRun(outcome string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, outcome)
	f.duration = d
}

func (f *fakeMetrics) ObserveItem(contentType, action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = map[string]int{}
	}
	f.items[contentType+"/"+action]++
}

// harness wires a Service over fakes
type harness struct {
	cfg        config.DeleteSyncConfig
	store      *fakeStore
	sonarr     *fakeSonarrManager
	radarr     *fakeRadarrManager
	refresher  *fakeRefresher
	protection *fakeProtection
	notifier   *fakeNotifier
	reports    *fakeReports
	metrics    *fakeMetrics
	logger     *mockLogger
}

func newHarness() *harness {
	return &harness{
		cfg: config.DeleteSyncConfig{
			DeleteMovie:            true,
			DeleteEndedShow:        true,
			DeleteContinuingShow:   true,
			DeleteFiles:            true,
			RespectUserSyncSetting: false,
			MaxDeletionPrevention:  100,
		},
		store: &fakeStore{
			users: []models.User{{ID: 1, Name: "admin", IsPrimary: true}},
			movies: []models.WatchlistItem{
				{ID: 1, UserID: 1, Title: "Wanted", Type: models.ContentTypeMovie, GUIDs: `["imdb:tt999"]`},
			},
		},
		sonarr: &fakeSonarrManager{instances: map[int]*fakeSonarrInstance{1: {id: 1}}},
		radarr: &fakeRadarrManager{instances: map[int]*fakeRadarrInstance{1: {id: 1}}},

		refresher:  &fakeRefresher{},
		protection: &fakeProtection{},
		notifier:   &fakeNotifier{},
		reports:    &fakeReports{},
		metrics:    &fakeMetrics{},
		logger:     &mockLogger{},
	}
}

func (h *harness) service() *Service {
	svc, err := NewService(h.cfg, Deps{
		Watchlists: h.store,
		Users:      h.store,
		Sonarr:     h.sonarr,
		Radarr:     h.radarr,
		Refresher:  h.refresher,
		Protection: h.protection,
		Notifier:   h.notifier,
		Reports:    h.reports,
		Metrics:    h.metrics,
		Logger:     h.logger,
		Progress:   arr.NewConsoleProgressReporter(h.logger),
	})
	if err != nil {
		panic(err)
	}
	return svc
}

func movie(title string, instance int, guids ...string) models.RadarrItem {
	return models.RadarrItem{Title: title, InstanceID: instance, GUIDs: guids}
}

func show(title, status string, instance int, guids ...string) models.SonarrItem {
	return models.SonarrItem{Title: title, InstanceID: instance, GUIDs: guids, SeriesStatus: status}
}

func assertBalanced(t interface {
	Helper()
	Errorf(string, ...interface{})
}, result *models.DeletionResult) {
	t.Helper()
	for name, b := range map[string]models.DeletionBucket{"movies": result.Movies, "shows": result.Shows} {
		if b.Deleted != len(b.Items) {
			t.Errorf("%s: deleted=%d but %d item records", name, b.Deleted, len(b.Items))
		}
	}
	tot := result.Total
	if tot.Deleted+tot.Skipped+tot.Protected != tot.Processed {
		t.Errorf("total: %d+%d+%d != processed %d", tot.Deleted, tot.Skipped, tot.Protected, tot.Processed)
	}
	if tot.Processed != result.Movies.Processed()+result.Shows.Processed() {
		t.Errorf("total processed %d != bucket sum %d", tot.Processed, result.Movies.Processed()+result.Shows.Processed())
	}
}
