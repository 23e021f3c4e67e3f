package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/catalog"
	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/telemetry"
)

type fakeCatalog struct {
	mu sync.Mutex

	models          map[string][]models.Asset
	searchErr       map[string]error
	lineage         map[string][]catalog.LineagePage
	lineageErr      error
	classifications []models.Classification
	classErr        error
	linkErr         map[string]error

	searches     atomic.Int32
	lineageCalls []string
	classCalls   atomic.Int32
	links        []string
}

func (f *fakeCatalog) SearchDbtModels(_ context.Context, name, _ string) ([]models.Asset, error) {
	f.searches.Add(1)
	if err := f.searchErr[name]; err != nil {
		return nil, err
	}
	return f.models[name], nil
}

func (f *fakeCatalog) ListDownstream(_ context.Context, guid string, from, size int) (*catalog.LineagePage, error) {
	f.mu.Lock()
	f.lineageCalls = append(f.lineageCalls, fmt.Sprintf("%s@%d/%d", guid, from, size))
	f.mu.Unlock()

	if f.lineageErr != nil {
		return nil, f.lineageErr
	}
	pages := f.lineage[guid]
	for _, page := range pages {
		if len(page.Entities) > 0 && page.Entities[0].GUID == fmt.Sprintf("%s-d%d", guid, from) {
			p := page
			return &p, nil
		}
	}
	if len(pages) > 0 && from == 0 {
		p := pages[0]
		return &p, nil
	}
	return &catalog.LineagePage{}, nil
}

func (f *fakeCatalog) ListClassifications(context.Context) ([]models.Classification, error) {
	f.classCalls.Add(1)
	return f.classifications, f.classErr
}

func (f *fakeCatalog) CreateLink(_ context.Context, guid, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, guid)
	return f.linkErr[guid]
}

type staticNames map[string]string

func (s staticNames) Resolve(_ context.Context, file models.ChangedFile) string {
	if name, ok := s[file.FileName]; ok {
		return name
	}
	return file.FileName
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (r *recordingEmitter) Emit(event telemetry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reasons []string
	for _, event := range r.events {
		if event.Action == telemetry.ActionFailure {
			reasons = append(reasons, event.Properties["reason"].(string))
		}
	}
	return reasons
}

func materializedModel(name, guid, tableGUID string) models.Asset {
	return models.Asset{
		GUID:        guid,
		TypeName:    "DbtModel",
		DisplayText: name,
		Attributes: models.Attributes{
			Name:          name,
			ConnectorName: "dbt",
			DbtModelSQLAssets: []models.Asset{{
				GUID:       tableGUID,
				TypeName:   "Table",
				Attributes: models.Attributes{Name: name, ConnectorName: "snowflake"},
			}},
		},
	}
}

func downstreamPage(guid string, from, n, total int, hasMore bool) catalog.LineagePage {
	entities := make([]models.Asset, 0, n)
	for i := 0; i < n; i++ {
		entities = append(entities, models.Asset{GUID: fmt.Sprintf("%s-d%d", guid, from+i), TypeName: "Table"})
	}
	return catalog.LineagePage{Entities: entities, EntityCount: total, HasMore: hasMore}
}

func memoSize(m *lookupMemo) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func newTestAnalyzer(cat *fakeCatalog, names NameResolver, events EventEmitter, opts Options) *Analyzer {
	if names == nil {
		names = staticNames{}
	}
	return New(cat, names, events, opts, zap.NewNop())
}

func TestClassifyLookup(t *testing.T) {
	notMaterialized := models.Asset{GUID: "m1", Attributes: models.Attributes{Name: "orders"}}
	found := materializedModel("orders", "m2", "t2")

	assert.Equal(t, models.LookupNotFound, ClassifyLookup("orders", nil).Status)

	result := ClassifyLookup("orders", []models.Asset{notMaterialized, found})
	assert.Equal(t, models.LookupDoesNotMaterialize, result.Status)
	assert.Equal(t, "m1", result.Asset.GUID)

	result = ClassifyLookup("orders", []models.Asset{found})
	assert.Equal(t, models.LookupFound, result.Status)
	assert.Equal(t, "m2", result.Asset.GUID)
}

func TestAnalyzeNotFoundSkipsDownstream(t *testing.T) {
	cat := &fakeCatalog{}
	a := newTestAnalyzer(cat, staticNames{"orders": "ord_fct"}, nil, Options{})

	results, err := a.Analyze(context.Background(), []models.ChangedFile{
		{FileName: "orders", FilePath: "models/core/orders.sql", Status: models.StatusModified},
	}, Pass{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, models.OutcomeNotFound, results[0].Outcome)
	assert.Equal(t, "ord_fct", results[0].AssetName)
	assert.Empty(t, cat.lineageCalls)
}

func TestAnalyzeNotMaterializedSkipsDownstream(t *testing.T) {
	cat := &fakeCatalog{models: map[string][]models.Asset{
		"orders": {{GUID: "m1", TypeName: "DbtModel", Attributes: models.Attributes{Name: "orders"}}},
	}}
	a := newTestAnalyzer(cat, nil, nil, Options{})

	results, err := a.Analyze(context.Background(), []models.ChangedFile{
		{FileName: "orders", FilePath: "models/orders.sql", Status: models.StatusModified},
	}, Pass{})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeNotMaterialized, results[0].Outcome)
	require.NotNil(t, results[0].Asset)
	assert.Equal(t, "m1", results[0].Asset.GUID)
	assert.Empty(t, cat.lineageCalls)
}

func TestAnalyzeSearchFailureIsNotFound(t *testing.T) {
	cat := &fakeCatalog{searchErr: map[string]error{"orders": errors.New("connection reset")}}
	events := &recordingEmitter{}
	a := newTestAnalyzer(cat, nil, events, Options{})

	results, err := a.Analyze(context.Background(), []models.ChangedFile{
		{FileName: "orders", FilePath: "models/orders.sql", Status: models.StatusModified},
	}, Pass{})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeNotFound, results[0].Outcome)
	assert.Contains(t, results[0].Error, "connection reset")
	assert.Equal(t, []string{telemetry.ReasonGetAsset}, events.failures())
}

func TestAnalyzeAddedModelSkipsLookup(t *testing.T) {
	cat := &fakeCatalog{}
	a := newTestAnalyzer(cat, nil, nil, Options{})

	results, err := a.Analyze(context.Background(), []models.ChangedFile{
		{FileName: "customers", FilePath: "models/customers.sql", Status: models.StatusAdded},
	}, Pass{SkipAdded: true})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeNewModel, results[0].Outcome)
	assert.Zero(t, cat.searches.Load())
}

func TestDownstreamPageCapSetsHasMore(t *testing.T) {
	cat := &fakeCatalog{
		models:  map[string][]models.Asset{"orders": {materializedModel("orders", "m1", "t1")}},
		lineage: map[string][]catalog.LineagePage{"t1": {downstreamPage("t1", 0, 10, 12, true)}},
	}
	events := &recordingEmitter{}
	a := newTestAnalyzer(cat, nil, events, Options{PageSize: 10, MaxEntities: 10})

	results, err := a.Analyze(context.Background(), []models.ChangedFile{
		{FileName: "orders", FilePath: "models/orders.sql", Status: models.StatusModified},
	}, Pass{})
	require.NoError(t, err)

	set := results[0].Downstream
	require.NotNil(t, set)
	assert.Equal(t, models.OutcomeImpact, results[0].Outcome)
	assert.Len(t, set.Entities, 10)
	assert.Equal(t, 12, set.EntityCount)
	assert.True(t, set.HasMore)
	assert.Equal(t, []string{"t1@0/10"}, cat.lineageCalls)
	assert.Equal(t, "t1", results[0].Materialized.GUID)
}

func TestDownstreamPageCapWithoutTotalSetsHasMore(t *testing.T) {
	cat := &fakeCatalog{
		lineage: map[string][]catalog.LineagePage{"t1": {downstreamPage("t1", 0, 10, 0, true)}},
	}
	a := newTestAnalyzer(cat, nil, nil, Options{PageSize: 10, MaxEntities: 10})

	set, err := a.Downstream(context.Background(), materializedModel("orders", "m1", "t1"), "t1", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"t1@0/10"}, cat.lineageCalls)
	assert.Len(t, set.Entities, 10)
	assert.Equal(t, 11, set.EntityCount)
	assert.True(t, set.HasMore)
}

func TestDownstreamPaginatesAndDedupes(t *testing.T) {
	second := downstreamPage("t1", 3, 3, 6, false)
	second.Entities[2].GUID = "t1-d0" // repeated from the first page
	cat := &fakeCatalog{
		lineage: map[string][]catalog.LineagePage{"t1": {
			downstreamPage("t1", 0, 3, 6, true),
			second,
		}},
	}
	a := newTestAnalyzer(cat, nil, nil, Options{PageSize: 3, MaxEntities: 100})

	set, err := a.Downstream(context.Background(), materializedModel("orders", "m1", "t1"), "t1", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"t1@0/3", "t1@3/3"}, cat.lineageCalls)
	assert.Len(t, set.Entities, 5)
	assert.Equal(t, 5, set.EntityCount, "duplicates are not counted once the last page is read")
	assert.False(t, set.HasMore)
}

func TestDownstreamServerUnderReports(t *testing.T) {
	cat := &fakeCatalog{
		lineage: map[string][]catalog.LineagePage{"t1": {downstreamPage("t1", 0, 4, 2, false)}},
	}
	a := newTestAnalyzer(cat, nil, nil, Options{PageSize: 10, MaxEntities: 10})

	set, err := a.Downstream(context.Background(), models.Asset{GUID: "m1"}, "t1", 1)
	require.NoError(t, err)

	assert.Equal(t, 4, set.EntityCount)
	assert.False(t, set.HasMore)
}

func TestDownstreamFailureEmitsEvent(t *testing.T) {
	cat := &fakeCatalog{
		models:     map[string][]models.Asset{"orders": {materializedModel("orders", "m1", "t1")}},
		lineageErr: errors.New("status 500"),
	}
	events := &recordingEmitter{}
	a := newTestAnalyzer(cat, nil, events, Options{})

	results, err := a.Analyze(context.Background(), []models.ChangedFile{
		{FileName: "orders", FilePath: "models/orders.sql", Status: models.StatusModified},
		{FileName: "customers", FilePath: "models/customers.sql", Status: models.StatusModified},
	}, Pass{})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDownstreamError, results[0].Outcome)
	assert.Equal(t, models.OutcomeNotFound, results[1].Outcome, "other files are unaffected")
	assert.Equal(t, []string{telemetry.ReasonFetchLineage}, events.failures())

	for _, event := range events.events {
		if event.Action == telemetry.ActionFailure {
			assert.Equal(t, 2, event.Properties["total_assets"])
		}
	}
}

func TestAnalyzePreservesOrderUnderConcurrency(t *testing.T) {
	cat := &fakeCatalog{models: map[string][]models.Asset{}}
	var files []models.ChangedFile
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("model_%02d", i)
		files = append(files, models.ChangedFile{FileName: name, FilePath: "models/" + name + ".sql", Status: models.StatusModified})
	}
	a := newTestAnalyzer(cat, nil, nil, Options{Concurrency: 5})

	results, err := a.Analyze(context.Background(), files, Pass{})
	require.NoError(t, err)
	require.Len(t, results, len(files))
	for i, result := range results {
		assert.Equal(t, files[i].FileName, result.File.FileName)
	}
}

func TestAnalyzeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestAnalyzer(&fakeCatalog{}, nil, nil, Options{})
	_, err := a.Analyze(ctx, []models.ChangedFile{{FileName: "orders"}}, Pass{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookupMemoizesPerRun(t *testing.T) {
	cat := &fakeCatalog{models: map[string][]models.Asset{"ord_fct": {materializedModel("ord_fct", "m1", "t1")}}}
	a := newTestAnalyzer(cat, nil, nil, Options{})

	first := a.Lookup(context.Background(), "ord_fct", "prod")
	second := a.Lookup(context.Background(), "ord_fct", "prod")
	a.Lookup(context.Background(), "ord_fct", "dev")

	assert.Equal(t, first, second)
	assert.EqualValues(t, 2, cat.searches.Load())
	assert.Equal(t, 2, memoSize(a.memo))
}

func TestLookupDoesNotMemoizeFailures(t *testing.T) {
	cat := &fakeCatalog{searchErr: map[string]error{"orders": errors.New("timeout")}}
	a := newTestAnalyzer(cat, nil, nil, Options{})

	a.Lookup(context.Background(), "orders", "")
	a.Lookup(context.Background(), "orders", "")

	assert.EqualValues(t, 2, cat.searches.Load())
	assert.Zero(t, memoSize(a.memo))
}

func TestClassificationsFetchedOnce(t *testing.T) {
	cat := &fakeCatalog{classifications: []models.Classification{{Name: "h1", DisplayName: "PII"}}}
	a := newTestAnalyzer(cat, nil, nil, Options{})

	assert.Len(t, a.Classifications(context.Background()), 1)
	assert.Len(t, a.Classifications(context.Background()), 1)
	assert.EqualValues(t, 1, cat.classCalls.Load())
}

func TestClassificationsFailureIsEmpty(t *testing.T) {
	cat := &fakeCatalog{classErr: errors.New("boom")}
	events := &recordingEmitter{}
	a := newTestAnalyzer(cat, nil, events, Options{})

	assert.Empty(t, a.Classifications(context.Background()))
	assert.Equal(t, []string{telemetry.ReasonGetClassifications}, events.failures())
}

func TestAttachIsIndependentPerGUID(t *testing.T) {
	cat := &fakeCatalog{linkErr: map[string]error{"m1": errors.New("403")}}
	events := &recordingEmitter{}
	a := newTestAnalyzer(cat, nil, events, Options{})

	model := materializedModel("orders", "m1", "t1")
	table, _ := model.MaterializedAsset()
	attached := a.Attach(context.Background(), models.FileResult{Asset: &model, Materialized: &table}, "Add orders", "https://example.com/pr/1")

	require.Len(t, attached, 2)
	assert.Equal(t, "m1", attached[0].GUID)
	assert.False(t, attached[0].Attached)
	assert.Equal(t, "t1", attached[1].GUID)
	assert.True(t, attached[1].Attached)
	assert.Equal(t, "snowflake", attached[1].ConnectorName)
	assert.Equal(t, []string{"m1", "t1"}, cat.links)
	assert.Equal(t, []string{telemetry.ReasonCreateResource}, events.failures())
}

func TestCountHelpers(t *testing.T) {
	files := []models.ChangedFile{
		{Status: models.StatusModified},
		{Status: models.StatusAdded},
		{Status: models.StatusModified},
		{Status: models.StatusRenamedOrMoved},
	}
	assert.Equal(t, 2, CountModified(files))

	results := []models.FileResult{
		{Outcome: models.OutcomeImpact},
		{Outcome: models.OutcomeNotFound},
		{Outcome: models.OutcomeImpact},
	}
	assert.Equal(t, 2, CountImpact(results))
}
